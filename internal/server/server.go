package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/rateboard/internal/authorization"
	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/heatmap"
	heatmapdomain "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/smallbiznis/rateboard/internal/observability"
	obsmiddleware "github.com/smallbiznis/rateboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rateboard/internal/observability/metrics"
	obstracing "github.com/smallbiznis/rateboard/internal/observability/tracing"
	"github.com/smallbiznis/rateboard/internal/ratemismatch"
	mismatchdomain "github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	session.Module,
	heatmap.Module,
	ratemismatch.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
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
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine     *gin.Engine
	log        *zap.Logger
	authzSvc   authorization.Service
	heatmapSvc heatmapdomain.Service
	sessions   *session.Service
	mismatches mismatchdomain.Service
}

type ServerParams struct {
	fx.In

	Engine     *gin.Engine
	Log        *zap.Logger
	Authz      authorization.Service
	Heatmaps   heatmapdomain.Service
	Sessions   *session.Service
	Mismatches mismatchdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Engine,
		log:        p.Log.Named("server"),
		authzSvc:   p.Authz,
		heatmapSvc: p.Heatmaps,
		sessions:   p.Sessions,
		mismatches: p.Mismatches,
	}
	s.registerAPIRoutes()
	return s
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired())

	// -------- Heatmaps --------
	heatmaps := api.Group("", s.authorize(authorization.ObjectHeatmap, authorization.ActionView))
	{
		heatmaps.GET("/datasets", s.ListDatasets)
		heatmaps.GET("/heatmaps/bounds", s.GetGlobalBounds)
		heatmaps.GET("/heatmaps/:dataset", s.RenderHeatmap)
	}

	// -------- Sessions --------
	sessions := api.Group("/sessions", s.authorize(authorization.ObjectSession, authorization.ActionManage))
	{
		sessions.POST("", s.CreateSession)
		sessions.GET("/:id", s.GetSession)
		sessions.PUT("/:id/tabs/:dataset/viewport", s.SetViewport)
		sessions.PUT("/:id/tabs/:dataset/year", s.SetYear)
	}

	// -------- Rate mismatches --------
	mismatches := api.Group("/mismatches")
	{
		mismatches.POST("/analyze", s.authorize(authorization.ObjectMismatch, authorization.ActionAnalyze), s.AnalyzeMismatches)
		mismatches.GET("/runs", s.authorize(authorization.ObjectMismatch, authorization.ActionView), s.ListAnalysisRuns)
		mismatches.GET("/report.pdf", s.authorize(authorization.ObjectMismatch, authorization.ActionView), s.DownloadReport)
	}
}
