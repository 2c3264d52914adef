package deskgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/federation"
	"github.com/rs/zerolog/log"
)

// writeError answers with the status and code matching err's kind.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, federation.ErrProviderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "provider_not_found", "message": err.Error()})
		return
	}

	kind := serrors.KindOf(err)
	status := serrors.HTTPStatus(kind)

	code := kind.String()
	if kind == serrors.KindUnknown {
		code = "internal_error"
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		if kind == serrors.KindUnknown {
			msg = "An internal error occurred."
		}
	}

	c.JSON(status, gin.H{"error": code, "message": msg})
}

var errRevokeFailed = errors.New("no token to revoke or revocation failed")
