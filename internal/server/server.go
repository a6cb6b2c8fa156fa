// Package server exposes the HTTP admin and program API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/loyaltyworks/tally/internal/apikey/domain"
	"github.com/loyaltyworks/tally/internal/config"
	customerdomain "github.com/loyaltyworks/tally/internal/customer/domain"
	ledgerdomain "github.com/loyaltyworks/tally/internal/ledger/domain"
	"github.com/loyaltyworks/tally/internal/possync"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
	voucherdomain "github.com/loyaltyworks/tally/internal/voucher/domain"
)

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	GenID      *snowflake.Node
	LedgerSvc  ledgerdomain.Service
	ProgramSvc programdomain.Service
	VoucherSvc voucherdomain.Service
	Customers  customerdomain.Repository
	APIKeys    apikeydomain.Repository
	Worker     *possync.Worker
}

type Server struct {
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	genID      *snowflake.Node
	ledgerSvc  ledgerdomain.Service
	programSvc programdomain.Service
	voucherSvc voucherdomain.Service
	customers  customerdomain.Repository
	apiKeys    apikeydomain.Repository
	worker     *possync.Worker

	// Manual sync triggers are expensive upstream calls; one key shares
	// one small budget.
	syncLimiter *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:         p.Config,
		log:         p.Log.Named("server"),
		db:          p.DB,
		genID:       p.GenID,
		ledgerSvc:   p.LedgerSvc,
		programSvc:  p.ProgramSvc,
		voucherSvc:  p.VoucherSvc,
		customers:   p.Customers,
		apiKeys:     p.APIKeys,
		worker:      p.Worker,
		syncLimiter: newRateLimiter(3, time.Minute),
	}
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine
}

func (s *Server) RegisterAPIRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api", s.APIKeyRequired())

	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)

	api.GET("/users/:id/wallet", s.GetWallet)
	api.GET("/users/:id/ledger", s.ListLedgerEntries)
	api.POST("/users/:id/adjustments", s.ManualAdjust)

	api.GET("/rewards", s.ListRewards)
	api.POST("/rewards", s.CreateReward)

	api.POST("/vouchers", s.IssueVoucher)
	api.GET("/vouchers/:code", s.GetVoucherByCode)
	api.POST("/vouchers/:code/redeem", s.RedeemVoucher)
	api.POST("/vouchers/:code/cancel", s.CancelVoucher)
	api.GET("/users/:id/vouchers", s.ListUserVouchers)

	api.GET("/program", s.GetProgramConfig)
	api.PATCH("/program", s.UpdateProgramConfig)

	api.POST("/sync/runs", s.TriggerSyncRun)
}

type runParams struct {
	fx.In

	LC     fx.Lifecycle
	Log    *zap.Logger
	Config config.Config
	Engine *gin.Engine
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(p runParams) {
	srv := &http.Server{
		Addr:              p.Config.Server.Addr(),
		Handler:           p.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				p.Log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					p.Log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server, engine *gin.Engine) {
		s.RegisterAPIRoutes(engine)
	}),
	fx.Invoke(RunHTTP),
)
