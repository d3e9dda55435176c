package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jmerrifield20/realtyhost/pkg/client"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecord(w io.Writer, rec *client.DomainRecord) {
	fmt.Fprintf(w, "Domain:       %s\n", rec.Domain)
	fmt.Fprintf(w, "Status:       %s\n", rec.Status)
	if rec.ProviderHostnameID != "" {
		fmt.Fprintf(w, "Hostname ID:  %s\n", rec.ProviderHostnameID)
	}
	if rec.SSLStatus != "" {
		fmt.Fprintf(w, "SSL:          %s\n", rec.SSLStatus)
	}

	records := dnsRecords(rec.VerificationRecord, rec.FirebaseVerification, rec.SSLValidationRecords)
	if len(records) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Publish these DNS records:")
	renderRecords(w, records)
}

func printStatus(w io.Writer, st *client.StatusResult) {
	d := st.Details
	fmt.Fprintf(w, "Domain:       %s\n", d.Domain)
	fmt.Fprintf(w, "Status:       %s\n", st.Status)
	fmt.Fprintf(w, "Hostname:     %s\n", d.HostnameStatus)
	fmt.Fprintf(w, "SSL:          %s\n", d.SSLStatus)

	if st.Status != client.StatusActive {
		if records := dnsRecords(d.VerificationRecord, nil, d.ValidationRecords); len(records) > 0 {
			fmt.Fprintln(w)
			renderRecords(w, records)
		}
	}
	for _, msg := range d.ValidationErrors {
		fmt.Fprintf(w, "SSL error:    %s\n", msg)
	}
	for _, msg := range d.VerificationErrors {
		fmt.Fprintf(w, "Verification: %s\n", msg)
	}
}

type labelledRecord struct {
	purpose string
	rec     client.ValidationRecord
}

// dnsRecords lists verification records first, dropping exact duplicates.
func dnsRecords(verification, hosting *client.ValidationRecord, ssl []client.ValidationRecord) []labelledRecord {
	var out []labelledRecord
	seen := map[client.ValidationRecord]bool{}
	add := func(purpose string, r client.ValidationRecord) {
		if seen[r] {
			return
		}
		seen[r] = true
		out = append(out, labelledRecord{purpose: purpose, rec: r})
	}
	if verification != nil {
		add("ownership", *verification)
	}
	if hosting != nil {
		add("hosting", *hosting)
	}
	for _, r := range ssl {
		add("certificate", r)
	}
	return out
}

func renderRecords(w io.Writer, records []labelledRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Purpose", "Type", "Name", "Value"})
	for _, r := range records {
		tw.AppendRow(table.Row{r.purpose, strings.ToUpper(r.rec.Type), r.rec.Name, r.rec.Value})
	}
	tw.Render()
}
