package handler

import (
	"payuni-gateway/internal/adapter/http/middleware"
	redisStore "payuni-gateway/internal/adapter/storage/redis"
	"payuni-gateway/internal/core/ports"
	"payuni-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Sessions       *service.SessionService
	OrderSvc       ports.OrderService
	Gateway        ports.GatewayAdapter
	WebhookSvc     ports.WebhookProcessor
	SubSvc         ports.SubscriptionService
	ResultTokens   ports.ResultTokenCache
	ResultURL      string
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(middleware.RequireCSRF())         // exempts safe methods and the gateway-facing paths

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	paymentHandler := NewPaymentHandler(deps.OrderSvc, deps.Gateway, deps.WebhookSvc, deps.ResultTokens, deps.ResultURL, deps.Logger)
	subHandler := NewSubscriptionHandler(deps.SubSvc)

	// --- Gateway-facing channels: the gateway is the caller, not the
	// browser's session, so these never carry a session token. CSRF is
	// exempted by path in middleware.RequireCSRF; the envelope hash
	// (return) and re-query (webhook) are the actual trust boundary here.
	r.POST("/payment-return", paymentHandler.PaymentReturn)
	r.POST("/payuni-webhook", paymentHandler.Webhook)

	v1 := r.Group("/api/v1", middleware.SessionAuth(deps.Sessions, deps.Logger))
	{
		v1.POST("/payments", rl("create_payment"), paymentHandler.CreatePayment)
		v1.POST("/subscriptions", rl("create_payment"), paymentHandler.CreateSubscription)
		v1.GET("/order-result/:token", rl("result_token"), paymentHandler.GetResult)
		v1.GET("/my-orders", rl("general"), paymentHandler.ListMyOrders)
		v1.GET("/subscriptions", rl("general"), subHandler.ListMySubscriptions)
		v1.POST("/subscriptions/:periodTradeNo/cancel", rl("general"), subHandler.Cancel)
	}

	return r
}
