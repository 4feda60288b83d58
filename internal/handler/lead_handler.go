package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sardorbek21324/Kairos-team/internal/dto"
	"github.com/sardorbek21324/Kairos-team/internal/service"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
	"github.com/sardorbek21324/Kairos-team/pkg/response"
)

type leadService interface {
	Submit(ctx context.Context, req dto.LeadRequest, meta service.LeadMeta) error
}

// LeadHandler exposes the website lead endpoint.
type LeadHandler struct {
	service leadService
}

// NewLeadHandler builds a new handler.
func NewLeadHandler(service leadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// Submit godoc
// @Summary Submit a website lead
// @Description Forwards a contact form submission to the sales chat.
// @Tags Lead
// @Accept json
// @Produce json
// @Param payload body dto.LeadRequest true "Lead payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /lead [post]
func (h *LeadHandler) Submit(c *gin.Context) {
	var req dto.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.CloneWrap(appErrors.ErrValidation, err, "invalid lead payload"))
		return
	}
	meta := service.LeadMeta{
		Origin:   c.GetHeader("Origin"),
		ClientIP: clientIP(c),
	}
	if err := h.service.Submit(c.Request.Context(), req, meta); err != nil {
		_ = c.Error(err)
		response.Error(c, err)
		return
	}
	response.OK(c)
}

// clientIP is the first X-Forwarded-For hop, else the peer address.
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := c.RemoteIP(); ip != "" {
		return ip
	}
	return "unknown"
}
