package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-idp-security/internal/application/challenge"
	"github.com/go-idp-security/internal/application/delivery"
	"github.com/go-idp-security/internal/application/fanout"
	"github.com/go-idp-security/internal/application/lifecycle"
	"github.com/go-idp-security/internal/application/session"
	"github.com/go-idp-security/internal/application/stepup"
	"github.com/go-idp-security/internal/config"
	"github.com/go-idp-security/internal/domain"
	jwtinfra "github.com/go-idp-security/internal/infrastructure/jwt"
	"github.com/go-idp-security/internal/infrastructure/smtp"
	"github.com/go-idp-security/internal/pkg/metrics"
	"github.com/go-idp-security/internal/pkg/totp"
	"github.com/go-idp-security/internal/transport/http/handler"
	appmiddleware "github.com/go-idp-security/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo     AccountRepository
	SessionRepo     SessionRepository
	DeliveryRepo    DeliveryRepository
	ClientRepo      ClientCatalog
	StepUpStore     StepUpStore
	ReportStore     ReportStore
	LogoutPublisher LogoutPublisher
	Notifier        BackchannelNotifier
	Mailer          smtp.Mailer
	JWTProvider     *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on every anonymous flow step.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	generic := totp.NewProvider(totp.KindGeneric, totp.Options{Pepper: []byte(cfg.TOTPPepper)})
	authenticator := totp.NewProvider(totp.KindAuthenticator, totp.Options{})

	fanoutSvc := fanout.NewService(deps.ClientRepo, deps.JWTProvider, deps.Notifier, deps.LogoutPublisher, deps.ReportStore, cfg.BackchannelTokenTTL)
	lifecycleSvc := lifecycle.NewService(deps.AccountRepo, deps.SessionRepo, deps.Mailer, fanoutSvc, lifecycle.Options{
		LockoutThreshold: cfg.LockoutThreshold,
		LockoutDuration:  cfg.LockoutDuration,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo: deps.SessionRepo,
		Accounts:    lifecycleSvc,
		JWTProvider: deps.JWTProvider,
		StepUps:     deps.StepUpStore,
	})
	deliverySvc := delivery.NewService(deps.DeliveryRepo, deps.Mailer, nil)
	challengeSvc := challenge.NewService(challenge.ServiceDeps{
		Lifecycle:     lifecycleSvc,
		Deliveries:    deliverySvc,
		Sessions:      sessionSvc,
		Generic:       generic,
		Authenticator: authenticator,
		Mailer:        deps.Mailer,
		Issuer:        cfg.TOTPIssuer,
	})
	stepupSvc := stepup.NewService(deps.StepUpStore, lifecycleSvc, authenticator, cfg.StepUpDuration, nil)

	healthH := handler.NewHealthHandler()
	signUpH := handler.NewSignUpHandler(challengeSvc)
	signInH := handler.NewSignInHandler(challengeSvc)
	recoveryH := handler.NewRecoveryHandler(challengeSvc)
	codeH := handler.NewCodeHandler(challengeSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	stepUpH := handler.NewStepUpHandler(stepupSvc)
	accountH := handler.NewAccountHandler(lifecycleSvc, fanoutSvc)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/sign-up", signUpH.Start)
			r.Post("/sign-up/confirm-email", signUpH.ConfirmEmail)
			r.Post("/enroll", signUpH.Enroll)

			r.Post("/sign-in", signInH.Start)
			r.Post("/sign-in/totp", signInH.VerifyTOTP)
			r.Post("/sign-in/email-code", signInH.RequestEmailCode)
			r.Post("/sign-in/email-code/verify", signInH.VerifyEmailCode)

			r.Post("/recovery/{action}", recoveryH.Action)
			r.Post("/codes/{action}", codeH.Action)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider, sessionSvc))

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/sign-out", sessionH.SignOut)

			r.Get("/step-up", stepUpH.Status)
			r.With(sensitiveRL.Limit).Post("/step-up", stepUpH.Challenge)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/accounts/{id}", accountH.Get)
				r.Get("/accounts/{id}/deletion-report", accountH.DeletionReport)

				// Destructive actions need a fresh step-up.
				r.Group(func(r chi.Router) {
					r.Use(appmiddleware.RequireStepUp(stepupSvc))

					r.Post("/accounts/{id}/block", accountH.Block)
					r.Post("/accounts/{id}/unblock", accountH.Unblock)
					r.Delete("/accounts/{id}", accountH.Delete)
				})
			})
		})
	})

	return r
}
