package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/frontdesk/internal/checkout/domain"
	"github.com/smallbiznis/frontdesk/internal/config"
	obslogger "github.com/smallbiznis/frontdesk/internal/observability/logger"
	pricingdomain "github.com/smallbiznis/frontdesk/internal/pricing/domain"
	"github.com/smallbiznis/frontdesk/internal/receipt"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware(cfg))
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           !cfg.IsProduction(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Params struct {
	fx.In

	Engine   *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	Pricing  pricingdomain.Service
	Checkout checkoutdomain.Service
	Ledger   bookingdomain.Ledger
	Receipts *receipt.Service
	Authz    authorization.Service
	Policy   *config.CheckoutPolicyHolder `optional:"true"`
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	pricing  pricingdomain.Service
	checkout checkoutdomain.Service
	ledger   bookingdomain.Ledger
	receipts *receipt.Service
	authz    authorization.Service
	policy   *config.CheckoutPolicyHolder
}

func NewServer(p Params) *Server {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticCheckoutPolicyHolder(config.DefaultCheckoutPolicy())
	}
	s := &Server{
		engine:   p.Engine,
		cfg:      p.Cfg,
		log:      p.Log.Named("http.server"),
		pricing:  p.Pricing,
		checkout: p.Checkout,
		ledger:   p.Ledger,
		receipts: p.Receipts,
		authz:    p.Authz,
		policy:   policy,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api", ActorContext())

	api.GET("/pricing", s.RequireAction(authorization.ObjectPricing, authorization.ActionPricingView), s.GetPricing)
	api.PUT("/pricing", s.RequireAction(authorization.ObjectPricing, authorization.ActionPricingUpdate), s.SavePricing)
	api.POST("/pricing/restore", s.RequireAction(authorization.ObjectPricing, authorization.ActionPricingRestore), s.RestorePricing)

	api.POST("/rooms/:id/stays", s.RequireAction(authorization.ObjectStay, authorization.ActionStayStart), s.StartStay)
	api.GET("/bookings/:id/quote", s.RequireAction(authorization.ObjectStay, authorization.ActionStayQuote), s.QuoteStay)
	api.PUT("/bookings/:id", s.RequireAction(authorization.ObjectStay, authorization.ActionStaySave), s.SaveStay)
	api.POST("/bookings/:id/pay", s.RequireAction(authorization.ObjectStay, authorization.ActionStayPay), s.PayStay)
	api.POST("/bookings/:id/cancel", s.RequireAction(authorization.ObjectStay, authorization.ActionStayCancel), s.CancelStay)
	api.GET("/bookings/:id/invoices", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)

	api.GET("/invoices/:id/receipt", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.InvoiceReceipt)
}
