package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"github.com/jmerrifield20/realtyhost/internal/domains/service"
	"github.com/jmerrifield20/realtyhost/internal/identity"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

// domainSvc is satisfied by *service.Provisioner.
type domainSvc interface {
	Provision(ctx context.Context, tenantID, domain string) (*model.DomainRecord, error)
	CheckStatus(ctx context.Context, tenantID string) (*service.StatusResult, error)
	Deprovision(ctx context.Context, tenantID string) error
	ResolveHost(ctx context.Context, host string) (*service.Resolution, error)
}

// DomainHandler exposes custom-domain operations over HTTP.
type DomainHandler struct {
	svc    domainSvc
	tokens *identity.OperatorTokenIssuer
	logger *zap.Logger
}

// NewDomainHandler creates a DomainHandler.
func NewDomainHandler(svc domainSvc, tokens *identity.OperatorTokenIssuer, logger *zap.Logger) *DomainHandler {
	return &DomainHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the domain routes on the given router group.
func (h *DomainHandler) Register(rg *gin.RouterGroup) {
	tenants := rg.Group("/tenants/:tenant_id/domain", identity.RequireOperator(h.tokens))
	{
		tenants.POST("", h.Provision)
		tenants.GET("/status", h.Status)
		tenants.DELETE("", h.Deprovision)
	}
	rg.GET("/resolve", h.Resolve)
}

type provisionRequest struct {
	Domain string `json:"domain"`
}

// Provision handles POST /tenants/:tenant_id/domain.
//
// Request body: {"domain": "www.example.com"}
func (h *DomainHandler) Provision(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if !h.authorize(c, tenantID) {
		return
	}

	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error(), "code": codes.InvalidArgument.String()})
		return
	}

	rec, err := h.svc.Provision(c.Request.Context(), tenantID, req.Domain)
	recordOperation("provision", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "message": "custom hostname returned no result; nothing stored"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Status handles GET /tenants/:tenant_id/domain/status.
func (h *DomainHandler) Status(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if !h.authorize(c, tenantID) {
		return
	}

	res, err := h.svc.CheckStatus(c.Request.Context(), tenantID)
	recordOperation("check_status", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Deprovision handles DELETE /tenants/:tenant_id/domain.
func (h *DomainHandler) Deprovision(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if !h.authorize(c, tenantID) {
		return
	}

	err := h.svc.Deprovision(c.Request.Context(), tenantID)
	recordOperation("deprovision", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Resolve handles GET /resolve?host= for the serving path.
func (h *DomainHandler) Resolve(c *gin.Context) {
	res, err := h.svc.ResolveHost(c.Request.Context(), c.Query("host"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// authorize checks the operator claims against tenantID and writes 403 when
// they do not cover it.
func (h *DomainHandler) authorize(c *gin.Context, tenantID string) bool {
	claims := identity.ClaimsFromCtx(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator token required", "code": codes.Unauthenticated.String()})
		return false
	}
	if !identity.CanManage(claims, tenantID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not grant access to this tenant", "code": codes.PermissionDenied.String()})
		return false
	}
	return true
}
