package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/punchcard/internal/card"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	"github.com/smallbiznis/punchcard/internal/checkin"
	checkindomain "github.com/smallbiznis/punchcard/internal/checkin/domain"
	"github.com/smallbiznis/punchcard/internal/config"
	"github.com/smallbiznis/punchcard/internal/customer"
	customerdomain "github.com/smallbiznis/punchcard/internal/customer/domain"
	"github.com/smallbiznis/punchcard/internal/merchant"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	"github.com/smallbiznis/punchcard/internal/moderation"
	moderationdomain "github.com/smallbiznis/punchcard/internal/moderation/domain"
	"github.com/smallbiznis/punchcard/internal/providers/email"
	"github.com/smallbiznis/punchcard/internal/redemption"
	redemptiondomain "github.com/smallbiznis/punchcard/internal/redemption/domain"
	"github.com/smallbiznis/punchcard/internal/shield"
	"github.com/smallbiznis/punchcard/internal/telemetry"
	"github.com/smallbiznis/punchcard/internal/visit"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	email.Module,
	merchant.Module,
	customer.Module,
	card.Module,
	visit.Module,
	shield.Module,
	moderation.Module,
	redemption.Module,
	checkin.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *telemetry.Metrics, tp *sdktrace.TracerProvider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(telemetry.TracingMiddleware(tp))
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, metrics *telemetry.Metrics, tp *sdktrace.TracerProvider) *gin.Engine {
	return NewEngine(log, metrics, tp)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	merchantSvc   merchantdomain.Service
	customerSvc   customerdomain.Service
	cardSvc       carddomain.Service
	checkInSvc    checkindomain.Service
	moderationSvc moderationdomain.Service
	redemptionSvc redemptiondomain.Service
	metrics       *telemetry.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	MerchantSvc   merchantdomain.Service
	CustomerSvc   customerdomain.Service
	CardSvc       carddomain.Service
	CheckInSvc    checkindomain.Service
	ModerationSvc moderationdomain.Service
	RedemptionSvc redemptiondomain.Service
	Metrics       *telemetry.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		merchantSvc:   p.MerchantSvc,
		customerSvc:   p.CustomerSvc,
		cardSvc:       p.CardSvc,
		checkInSvc:    p.CheckInSvc,
		moderationSvc: p.ModerationSvc,
		redemptionSvc: p.RedemptionSvc,
		metrics:       p.Metrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Scan --------
	api.POST("/scan", s.Scan)
	api.POST("/scan/undo", s.UndoScan)

	// -------- Rewards --------
	api.POST("/redeem", s.Redeem)

	// -------- Cards --------
	api.GET("/cards/:id", s.GetCard)
	api.GET("/cards/:id/visits", s.ListCardVisits)

	// -------- Merchants --------
	api.POST("/merchants", s.CreateMerchant)
	api.GET("/merchants/:id", s.GetMerchant)
	api.PUT("/merchants/:id/loyalty", s.UpdateLoyaltyConfig)
	api.POST("/merchants/:id/bans", s.BanCustomer)
	api.DELETE("/merchants/:id/bans/:customerId", s.UnbanCustomer)
	api.POST("/merchants/:id/cards/:cardId/adjustments", s.AdjustStamps)

	// -------- Moderation --------
	api.GET("/merchants/:id/moderation", s.ListPendingVisits)
	api.POST("/merchants/:id/moderation/:visitId/confirm", s.ConfirmVisit)
	api.POST("/merchants/:id/moderation/:visitId/reject", s.RejectVisit)
}
