package handlers

import (
	"github.com/fasthttp/router"
	xhttp "github.com/asuogyaman/constituency-gateway/pkg/http"
)

type HealthService interface {
	Get() error
}
type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		svc: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if err := h.svc.Get(); err != nil {
		ctx.Response.SetStatusCode(503)
		ctx.Response.SetBodyString("unhealthy")
		return
	}
	ctx.Response.SetBodyString("success")
}
