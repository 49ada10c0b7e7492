package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/parisxmas/oxisite/internal/ai"
	"github.com/parisxmas/oxisite/internal/analytics"
	"github.com/parisxmas/oxisite/internal/config"
	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/notify"
	"github.com/parisxmas/oxisite/internal/pipeline"
	"github.com/parisxmas/oxisite/internal/repository"
	"github.com/parisxmas/oxisite/internal/seo"
	"github.com/parisxmas/oxisite/internal/service"
	"github.com/parisxmas/oxisite/internal/sitemap"
	"github.com/parisxmas/oxisite/internal/sqlstore"
)

type repos struct {
	users       *repository.UserRepo
	forms       *repository.FormRepo
	submissions *repository.SubmissionRepo
	leads       *repository.LeadRepo
	content     *repository.ContentRepo
	seo         *repository.SEORepo
	versions    *repository.VersionRepo
	workflows   *repository.WorkflowRepo
	aiContent   *repository.AIContentRepo
}

func newRepos(pool *db.Pool, attempts int) *repos {
	return &repos{
		users:       repository.NewUserRepo(pool),
		forms:       repository.NewFormRepo(pool, attempts),
		submissions: repository.NewSubmissionRepo(pool),
		leads:       repository.NewLeadRepo(pool, attempts),
		content:     repository.NewContentRepo(pool),
		seo:         repository.NewSEORepo(pool, attempts),
		versions:    repository.NewVersionRepo(pool, attempts),
		workflows:   repository.NewWorkflowRepo(pool, attempts),
		aiContent:   repository.NewAIContentRepo(pool),
	}
}

// ensureIndexes creates small collection indexes first; submissions can
// take minutes on large datasets.
func (r *repos) ensureIndexes(ctx context.Context, log *zap.Logger) {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", r.users.EnsureIndexes},
		{"forms", r.forms.EnsureIndexes},
		{"leads", r.leads.EnsureIndexes},
		{"content", r.content.EnsureIndexes},
		{"seo", r.seo.EnsureIndexes},
		{"versions", r.versions.EnsureIndexes},
		{"workflows", r.workflows.EnsureIndexes},
		{"ai content", r.aiContent.EnsureIndexes},
		{"submissions", r.submissions.EnsureIndexes},
	}
	for _, s := range steps {
		start := time.Now()
		if err := s.fn(ctx); err != nil {
			log.Warn("index creation failed", zap.String("collection", s.name), zap.Error(err))
			continue
		}
		log.Info("indexes ready", zap.String("collection", s.name), zap.Duration("took", time.Since(start)))
	}
}

// app holds every service the commands share.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	pool  *db.Pool
	repos *repos

	leadStore lead.Store
	counter   analytics.Counter
	gateway   *ai.Gateway

	auth        *service.AuthService
	forms       *service.FormService
	submissions *service.SubmissionService
	leads       *service.LeadService
	seo         *service.SEOService
	content     *service.ContentService
	ai          *service.AIService
	search      *service.SearchService
	sitemap     *sitemap.Generator

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	pool, err := db.NewPool(ctx, db.Options{
		Host:      cfg.OxiDBHost,
		Port:      cfg.OxiDBPort,
		Size:      cfg.PoolSize,
		TxSize:    cfg.TxPoolSize,
		Keepalive: 30 * time.Second,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect to OxiDB: %w", err)
	}
	a := &app{cfg: cfg, log: log, pool: pool, repos: newRepos(pool, cfg.TxAttempts)}
	a.closers = append(a.closers, pool.Close)

	if err := a.openLeadStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openCounter()
	if err := a.openGateway(ctx); err != nil {
		a.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	var mailer notify.Mailer = notify.NewLogMailer(log)
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	notifier := notify.New(notify.Options{
		Mailer:     mailer,
		HTTPClient: httpClient,
		BaseURL:    cfg.BaseURL,
		UserAgent:  cfg.WebhookAgent,
		Logger:     log,
	})
	proc := pipeline.New(pipeline.Options{
		Forms:       a.repos.forms,
		Submissions: a.repos.submissions,
		Leads:       a.leadStore,
		Counter:     a.counter,
		Notifier:    notifier,
		Logger:      log,
	})

	r := a.repos
	a.auth = service.NewAuthService(r.users, cfg.JWTSecret)
	a.forms = service.NewFormService(r.forms, r.submissions, a.counter, log)
	a.submissions = service.NewSubmissionService(r.submissions, proc)
	a.leads = service.NewLeadService(a.leadStore)
	a.seo = service.NewSEOService(r.content, r.seo, a.gateway, service.SEOOptions{
		SiteURL:      cfg.BaseURL,
		Organization: seo.Organization{Name: "OxiSite", URL: cfg.BaseURL},
		AutoOptimize: cfg.AI.AutoOptimization,
	}, log)
	a.content = service.NewContentService(r.content, r.versions, r.workflows, r.aiContent, a.seo, a.gateway, log)
	a.ai = service.NewAIService(a.gateway, r.aiContent, log)
	a.search = service.NewSearchService(r.submissions, r.content)
	a.sitemap = sitemap.NewGenerator(cfg.BaseURL, a.seo, log)
	return a, nil
}

func (a *app) openLeadStore(ctx context.Context) error {
	if a.cfg.LeadStore == "oxidb" {
		a.leadStore = a.repos.leads
		return nil
	}
	d, err := sqlstore.DialectFor(a.cfg.LeadStore)
	if err != nil {
		return err
	}
	store, err := sqlstore.Open(ctx, d, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open %s lead store: %w", a.cfg.LeadStore, err)
	}
	a.leadStore = store
	a.closers = append(a.closers, func() { store.Close() })
	a.log.Info("lead store", zap.String("backend", a.cfg.LeadStore))
	return nil
}

func (a *app) openCounter() {
	if a.cfg.CounterBackend != "redis" {
		a.counter = analytics.NewOxiDB(a.repos.forms)
		return
	}
	client := analytics.NewRedisClient(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	a.counter = analytics.NewRedis(client)
	a.closers = append(a.closers, func() { client.Close() })
	a.log.Info("analytics counters", zap.String("backend", "redis"), zap.String("addr", a.cfg.RedisAddr))
}

// openGateway leaves the gateway nil when no provider is configured.
func (a *app) openGateway(ctx context.Context) error {
	c := a.cfg.AI
	var provider ai.Provider
	switch c.Provider {
	case "":
		a.log.Info("AI features disabled")
		return nil
	case "openai":
		provider = ai.NewOpenAI(c.APIKey, c.BaseURL, &http.Client{})
	case "gemini":
		g, err := ai.NewGemini(ctx, c.APIKey)
		if err != nil {
			return err
		}
		provider = g
	default:
		return fmt.Errorf("unknown AI provider %q", c.Provider)
	}
	var limiter *rate.Limiter
	if c.RequestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.RequestsPerMin)), max(1, c.RequestsPerMin/10))
	}
	a.gateway = ai.NewGateway(provider, ai.Options{
		DefaultModel: c.DefaultModel,
		Timeout:      c.Timeout,
		MaxRetries:   c.MaxRetries,
		Backoff:      500 * time.Millisecond,
		Limiter:      limiter,
		Logger:       a.log,
	})
	a.log.Info("AI gateway ready", zap.String("provider", c.Provider), zap.String("model", a.gateway.DefaultModelName()))
	return nil
}
