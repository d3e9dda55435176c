package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/realtyhost/internal/domains/service"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

// httpStatus maps a service error kind to its HTTP status.
func httpStatus(err error) int {
	switch service.Code(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Aborted:
		return http.StatusConflict
	case codes.Internal:
		if service.IsUpstream(err) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func (h *DomainHandler) writeError(c *gin.Context, err error) {
	status := httpStatus(err)
	code := service.Code(err)

	msg := "internal error"
	var se *service.Error
	if errors.As(err, &se) {
		msg = se.Msg
	}

	if status >= http.StatusInternalServerError || code == codes.Aborted {
		h.logger.Error("domain operation failed",
			zap.String("path", c.FullPath()),
			zap.String("tenant_id", c.Param("tenant_id")),
			zap.String("code", code.String()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": msg, "code": code.String()})
}
