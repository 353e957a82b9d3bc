package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-overtime-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/idempotency"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Env            string
	LogLevel       slog.Level
	AllowedOrigins []string
	// StoragePath is served under /uploads when set.
	StoragePath string
	// Idempotency is optional; nil disables replay of Start/End.
	Idempotency *idempotency.Store
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	overtimeHandler OvertimeHandler,
	notificationHandler NotificationHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-overtime"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.HeaderIdempotencyKey},
		ExposedHeaders:   []string{"Link", middleware.HeaderReplayed},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.StoragePath != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.StoragePath))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Authenticated by the ?token= stream token instead of a bearer header.
		r.Get("/notifications/stream", notificationHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/overtime", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionOvertimeSettings)).Get("/settings", overtimeHandler.GetSettings)

				r.With(middleware.RequirePermission(user.PermissionOvertimeViewAll)).Get("/", overtimeHandler.List)
				r.With(middleware.RequirePermission(user.PermissionOvertimeCreate)).Post("/", overtimeHandler.Create)
				r.With(middleware.RequirePermission(user.PermissionOvertimeViewOwn)).Get("/my", overtimeHandler.ListMine)

				r.Route("/{id}", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionOvertimeViewOwn)).Get("/", overtimeHandler.Get)
					r.With(middleware.RequirePermission(user.PermissionOvertimeCreate)).Post("/cancel", overtimeHandler.Cancel)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionOvertimeApprove))
						r.Post("/approve", overtimeHandler.Approve)
						r.Post("/reject", overtimeHandler.Reject)
					})

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionOvertimeExecute))
						r.Use(middleware.Idempotency(cfg.Idempotency))
						r.Post("/start", overtimeHandler.Start)
						r.Post("/end", overtimeHandler.End)
					})
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/read", notificationHandler.MarkAsRead)
				r.Post("/read-all", notificationHandler.MarkAllAsRead)
				r.Post("/sse-token", notificationHandler.GetSSEToken)
			})
		})
	})
	return r
}
