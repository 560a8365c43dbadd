package http

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/payments/ports"
)

// Handler lists the payment methods bound at startup.
type Handler struct {
	catalog ports.MethodCatalog
}

func NewHandler(catalog ports.MethodCatalog) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/payment-methods", h.ListMethods)
}

type method struct {
	Method string `json:"method"`
	domain.Capabilities
}

// Get /v1/payment-methods
func (h *Handler) ListMethods(c *gin.Context) {
	methods := h.catalog.Methods()
	out := make([]method, 0, len(methods))
	for name, caps := range methods {
		out = append(out, method{Method: name, Capabilities: caps})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	c.JSON(http.StatusOK, out)
}
