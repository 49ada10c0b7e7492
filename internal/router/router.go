package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/auth"
	"github.com/parisxmas/oxisite/internal/handler"
	mw "github.com/parisxmas/oxisite/internal/middleware"
	"github.com/parisxmas/oxisite/internal/models"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Form       *handler.FormHandler
	Submission *handler.SubmissionHandler
	Lead       *handler.LeadHandler
	Content    *handler.ContentHandler
	SEO        *handler.SEOHandler
	AI         *handler.AIHandler
	Search     *handler.SearchHandler
	Dashboard  *handler.DashboardHandler
	Admin      *handler.AdminHandler
	Public     *handler.PublicHandler
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	// TrustedProxies are the peers whose forwarding headers name the client.
	// Empty means the socket address is always the client.
	TrustedProxies []netip.Prefix
	// PublicLimiter throttles anonymous writes per client IP. Nil disables it.
	PublicLimiter *mw.RateLimiter
	// Trace wraps the whole router, typically with the telemetry middleware.
	Trace func(http.Handler) http.Handler
	Log   *zap.Logger
}

func New(opts Options, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.RealIP(opts.TrustedProxies))
	r.Use(mw.Recovery(opts.Log))
	r.Use(mw.Logger(opts.Log))
	r.Use(mw.CORS(opts.CORSOrigins))

	throttle := func(next http.Handler) http.Handler { return next }
	if opts.PublicLimiter != nil {
		throttle = opts.PublicLimiter.Middleware
	}

	r.Get("/sitemap.xml", h.Public.Sitemap)
	r.Get("/robots.txt", h.Public.Robots)
	r.Get("/healthz", h.Public.Health)

	editors := auth.RequireRole(models.RoleAdmin, models.RoleEditor)
	admins := auth.RequireRole(models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Use(throttle)
			r.Post("/auth/login", h.Auth.Login)
			r.Get("/public/forms/{formId}", h.Form.Public)
			r.Post("/public/forms/{formId}/submissions", h.Submission.Create)
			r.Post("/public/forms/{formId}/views", h.Form.View)
			r.Get("/public/seo/score", h.SEO.Score)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(opts.JWTSecret))

			r.Get("/auth/me", h.Auth.Me)
			r.Get("/dashboard", h.Dashboard.Dashboard)

			// Forms
			r.Get("/forms", h.Form.List)
			r.Get("/forms/{formId}", h.Form.Get)
			r.Get("/forms/{formId}/analytics", h.Form.Analytics)
			r.With(editors).Post("/forms", h.Form.Create)
			r.With(editors).Put("/forms/{formId}", h.Form.Update)
			r.With(editors).Delete("/forms/{formId}", h.Form.Delete)

			// Submissions
			r.Get("/forms/{formId}/submissions", h.Submission.List)
			r.Get("/forms/{formId}/submissions/{subId}", h.Submission.Get)
			r.With(editors).Patch("/forms/{formId}/submissions/{subId}", h.Submission.Review)
			r.With(editors).Delete("/forms/{formId}/submissions/{subId}", h.Submission.Delete)

			// Leads
			r.Get("/leads", h.Lead.List)
			r.Get("/leads/{leadId}", h.Lead.Get)
			r.With(editors).Patch("/leads/{leadId}", h.Lead.Update)

			// Content
			r.Get("/content/{kind}", h.Content.List)
			r.Get("/content/{kind}/{id}", h.Content.Get)
			r.Get("/content/{kind}/{id}/versions", h.Content.Versions)
			r.Group(func(r chi.Router) {
				r.Use(editors)
				r.Post("/content/{kind}", h.Content.Create)
				r.Put("/content/{kind}/{id}", h.Content.Update)
				r.Delete("/content/{kind}/{id}", h.Content.Delete)
				r.Post("/content/{kind}/{id}/seo", h.Content.Analyze)
				r.Post("/content/versions/{versionId}/rollback", h.Content.Rollback)
			})

			// SEO
			r.Post("/seo/analyze", h.SEO.Analyze)
			r.Post("/seo/analyze-page", h.SEO.AnalyzePage)
			r.Get("/seo/structured-data/{kind}/{id}", h.SEO.StructuredData)

			// AI
			r.Group(func(r chi.Router) {
				r.Use(editors)
				r.Post("/ai/generate", h.AI.Generate)
				r.Post("/ai/improve", h.AI.Improve)
				r.Post("/ai/translate", h.AI.Translate)
				r.Post("/ai/seo-suggestions", h.AI.SEOSuggestions)
				r.Get("/ai/content", h.AI.List)
			})

			// Search
			r.Post("/search", h.Search.Search)

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(admins)
				r.Post("/users", h.Auth.CreateUser)
				r.Get("/admin/indexes", h.Admin.ListIndexes)
				r.Post("/admin/compact", h.Admin.Compact)
			})
		})
	})

	if opts.Trace != nil {
		return opts.Trace(r)
	}
	return r
}
