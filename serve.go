package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/content"
	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/handler"
	mw "github.com/parisxmas/oxisite/internal/middleware"
	"github.com/parisxmas/oxisite/internal/router"
	"github.com/parisxmas/oxisite/internal/service"
	"github.com/parisxmas/oxisite/internal/sitemap"
	"github.com/parisxmas/oxisite/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    "oxisite",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRate:     1,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tel.Shutdown(sctx)
	}()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	log.Info("connected to OxiDB",
		zap.String("host", cfg.OxiDBHost),
		zap.Int("port", cfg.OxiDBPort),
		zap.Int("pool_size", cfg.PoolSize))

	// Index builds and admin seeding run on a dedicated connection so a
	// long build on a large submissions collection does not block requests.
	go backgroundInit(ctx, cfg.OxiDBHost, cfg.OxiDBPort, a)

	go content.NewSweeper(a.content, cfg.SchedulerEvery, log).Run(ctx)

	proxies, err := mw.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(a.auth, log),
		Form:       handler.NewFormHandler(a.forms, log),
		Submission: handler.NewSubmissionHandler(a.submissions, log),
		Lead:       handler.NewLeadHandler(a.leads, log),
		Content:    handler.NewContentHandler(a.content, a.seo, log),
		SEO:        handler.NewSEOHandler(a.seo, log),
		AI:         handler.NewAIHandler(a.ai, log),
		Search:     handler.NewSearchHandler(a.search, log),
		Dashboard:  handler.NewDashboardHandler(a.forms, a.submissions, a.leads, a.content, log),
		Admin:      handler.NewAdminHandler(a.repos.submissions, log),
		Public: handler.NewPublicHandler(a.sitemap, cfg.BaseURL, sitemap.RobotsOptions{
			Disallow:   cfg.RobotsDisallow,
			CrawlDelay: cfg.RobotsCrawlDelay,
		}, a.pool, log),
	}
	opts := router.Options{
		JWTSecret:      cfg.JWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: proxies,
		PublicLimiter:  mw.NewRateLimiter(ctx, cfg.PublicRPS, cfg.PublicBurst),
		Log:            log,
	}
	if tel.Enabled() {
		opts.Trace = tel.Middleware
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(opts, h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// AI generation can take up to the gateway timeout.
		WriteTimeout: cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("oxisite server starting", zap.String("addr", cfg.HTTPAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
	}
	return nil
}

func backgroundInit(ctx context.Context, host string, port int, a *app) {
	log := a.log.Named("init")
	log.Info("background init starting")
	pool, err := db.NewPool(ctx, db.Options{Host: host, Port: port, Size: 1, TxSize: 1}, log)
	var r *repos
	if err != nil {
		log.Warn("init pool connect failed, using main pool", zap.Error(err))
		r = a.repos
	} else {
		defer pool.Close()
		r = newRepos(pool, a.cfg.TxAttempts)
	}

	r.ensureIndexes(ctx, log)
	if err := service.NewAuthService(r.users, a.cfg.JWTSecret).SeedAdmin(ctx, a.cfg.AdminEmail, a.cfg.AdminPass); err != nil {
		log.Warn("failed to seed admin", zap.Error(err))
	}
	log.Info("background init done")
}
