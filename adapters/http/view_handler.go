package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

type ProfileViewHandler struct {
	gateway profile.Gateway
	timeout time.Duration
	logger  logger.Logger
}

func NewProfileViewHandler(gw profile.Gateway, timeout time.Duration, log logger.Logger) *ProfileViewHandler {
	return &ProfileViewHandler{gateway: gw, timeout: timeout, logger: log}
}

func (h *ProfileViewHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	p, err := h.gateway.Get(ctx)
	if err != nil {
		h.logger.Error("Failed to load profile for view", err)
		c.HTML(apperror.ToHTTPStatus(err), "error.html", gin.H{
			"Message": "failed to load profile",
			"Retry":   "/",
		})
		return
	}
	c.HTML(http.StatusOK, "view.html", gin.H{"Profile": p})
}
