package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	carthttp "github.com/Apurer/go-storefront-api/internal/domains/carts/adapters/http"
	invhttp "github.com/Apurer/go-storefront-api/internal/domains/inventory/adapters/http"
	payhttp "github.com/Apurer/go-storefront-api/internal/domains/payments/adapters/http"
	purchhttp "github.com/Apurer/go-storefront-api/internal/domains/purchasing/adapters/http"
	purchports "github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
	userhttp "github.com/Apurer/go-storefront-api/internal/domains/users/adapters/http"
)

// NewRouter mounts every domain handler under /v1.
func NewRouter(serviceName string, c *Components, workflows purchports.WorkflowOrchestrator) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	purchhttp.NewHandler(c.Purchasing, workflows).Register(v1)
	invhttp.NewHandler(c.Inventory).Register(v1)
	userhttp.NewHandler(c.Users).Register(v1)
	carthttp.NewHandler(c.Carts).Register(v1)
	payhttp.NewHandler(c.Methods).Register(v1)
	return router
}
