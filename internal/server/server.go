package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hirelink/hirelink/internal/config"
	"github.com/hirelink/hirelink/internal/contract"
	contractdomain "github.com/hirelink/hirelink/internal/contract/domain"
	"github.com/hirelink/hirelink/internal/identity"
	identitydomain "github.com/hirelink/hirelink/internal/identity/domain"
	"github.com/hirelink/hirelink/internal/milestone"
	milestonedomain "github.com/hirelink/hirelink/internal/milestone/domain"
	obslogger "github.com/hirelink/hirelink/internal/observability/logger"
	obsmetrics "github.com/hirelink/hirelink/internal/observability/metrics"
	"github.com/hirelink/hirelink/internal/payment"
	paymentdomain "github.com/hirelink/hirelink/internal/payment/domain"
	"github.com/hirelink/hirelink/internal/payment/gateways"
	"github.com/hirelink/hirelink/internal/providers/pdf"
	"github.com/hirelink/hirelink/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	identity.Module,
	contract.Module,
	milestone.Module,
	payment.Module,
	ratelimit.Module,
	pdf.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *obsmetrics.Metrics) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Log:             log,
		Debug:           cfg.Environment == "development",
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger, httpMetrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(cfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	identitySvc     identitydomain.Service
	contractSvc     contractdomain.Service
	milestoneSvc    milestonedomain.Service
	paymentSvc      paymentdomain.Service
	reconciler      paymentdomain.Reconciler
	registry        *gateways.Registry
	callbackLimiter *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	IdentitySvc  identitydomain.Service
	ContractSvc  contractdomain.Service
	MilestoneSvc milestonedomain.Service
	PaymentSvc   paymentdomain.Service
	Reconciler   paymentdomain.Reconciler
	Registry     *gateways.Registry
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		identitySvc:     p.IdentitySvc,
		contractSvc:     p.ContractSvc,
		milestoneSvc:    p.MilestoneSvc,
		paymentSvc:      p.PaymentSvc,
		reconciler:      p.Reconciler,
		registry:        p.Registry,
		callbackLimiter: ratelimit.NewTokenBucket(5, 20),
	}

	svc.registerAPIRoutes()
	svc.registerCallbackRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.POST("/contracts", s.CreateContract)
	api.GET("/contracts/:id", s.GetContract)
	api.PUT("/contracts/:id", s.UpdateContract)
	api.POST("/contracts/:id/send", s.SendContract)
	api.POST("/contracts/:id/sign", s.SignContract)
	api.POST("/contracts/:id/cancel", s.CancelContract)
	api.POST("/contracts/:id/complete", s.CompleteContract)

	api.POST("/contracts/:id/milestones", s.AddMilestone)
	api.PUT("/milestones/:id", s.UpdateMilestone)
	api.DELETE("/milestones/:id", s.DeleteMilestone)

	api.POST("/payments", s.InitiatePayment)
	api.GET("/payments/:id", s.GetPayment)
	api.GET("/payments/:id/receipt", s.GetPaymentReceipt)
}

func (s *Server) registerCallbackRoutes() {
	s.engine.POST("/api/payments/callbacks/:gateway", s.CallbackRateLimit(), s.HandleGatewayCallback)
}
