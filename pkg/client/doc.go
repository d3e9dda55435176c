// Package client is the Go SDK for the custom-domain service.
//
// Operator calls need a bearer token minted with the shared secret
// (see "domainctl token"):
//
//	c, err := client.New("https://domains.internal:8080",
//	    client.WithBearerToken(token),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Attaching a domain
//
//	rec, err := c.Provision(ctx, "tenant-42", "www.example.com")
//	// Publish rec.VerificationRecord and rec.SSLValidationRecords at the
//	// domain's DNS host, then poll:
//	st, err := c.Status(ctx, "tenant-42")
//	fmt.Println(st.Status) // pending → active
//
// Errors returned by the service are *APIError values carrying the HTTP
// status and the failure kind:
//
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == client.CodeFailedPrecondition {
//	    // provider credentials are missing on the server
//	}
//
// # Resolving a host
//
// Resolution is public and needs no token:
//
//	res, err := client.MustNew(base).Resolve(ctx, "www.example.com")
//	fmt.Println(res.TenantID)
package client
