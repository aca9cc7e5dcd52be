package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/middleware"
	"dc-purchase-api/internal/service"
)

type RouterDeps struct {
	Orders           *service.OrderService
	Webhooks         *service.WebhookService
	Processor        *service.Processor
	Verifier         middleware.SignatureVerifier
	WebhookTolerance time.Duration
	AdminToken       string
	TrustedProxies   []string
}

// NewRouter 注册 /dc-purchase 下的全部路由
func NewRouter(d RouterDeps) *gin.Engine {
	dto.RegisterValidators()

	r := gin.New()
	_ = r.SetTrustedProxies(d.TrustedProxies)
	r.Use(middleware.Trace(), middleware.Recover(), middleware.RequestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/dc-purchase", middleware.CORS())
	{
		oh := NewOrderHandler(d.Orders)
		api.POST("/orders", oh.Create)
		api.GET("/orders/:id", oh.Get)
		api.GET("/oui/:oui", NewOuiHandler(d.Orders).Resolve)
		api.OPTIONS("/*any", func(c *gin.Context) {})

		wh := NewWebhookHandler(d.Webhooks)
		api.POST("/webhooks/onramp", middleware.WebhookAuth(d.Verifier, d.WebhookTolerance), wh.Onramp)
	}

	admin := r.Group("/dc-purchase/admin", middleware.AdminAuth(d.AdminToken))
	{
		ah := NewAdminHandler(d.Orders, d.Processor)
		admin.POST("/orders/:id/resume", ah.Resume)
		admin.GET("/orders/:id/events", ah.Events)
	}
	return r
}
