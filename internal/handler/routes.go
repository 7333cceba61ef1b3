package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Gateway       domain.IdentityGateway
	Users         domain.UserRepository
	Catalog       *service.Catalog
	Console       *service.Console
	Views         *service.ViewCache
	Health        Pinger
	Files         domain.BlobStore // served under /files/ when set
	CookieSecure  bool
	ToastDuration time.Duration
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	toasts := NewToastHandler(d.ToastDuration)
	authHandler := NewAuthHandler(d.Views, d.CookieSecure)
	studentHandler := NewStudentHandler(d.Catalog, d.Views, toasts)
	adminHandler := NewAdminHandler(d.Console, d.Views, toasts)
	healthHandler := NewHealthHandler(d.Health)

	session := func(h http.HandlerFunc) http.Handler {
		return WithSession(d.Gateway, d.Users, h)
	}
	student := func(h http.HandlerFunc) http.Handler {
		return WithSession(d.Gateway, d.Users, RequireRole(domain.RoleStudent, h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return WithSession(d.Gateway, d.Users, RequireRole(domain.RoleAdmin, h))
	}

	mux.HandleFunc("GET /healthz", healthHandler.HandleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	if d.Files != nil {
		mux.HandleFunc("GET /files/{key...}", NewFileHandler(d.Files).HandleFile)
	}
	mux.HandleFunc("GET /toasts/{id}/expire", toasts.HandleExpire)

	mux.Handle("GET /", session(authHandler.HandleRoot))
	mux.Handle("GET /login", session(authHandler.HandleLoginPage))
	mux.Handle("POST /login", session(authHandler.HandleLogin))
	mux.Handle("GET /register", session(authHandler.HandleRegisterPage))
	mux.Handle("POST /register", session(authHandler.HandleRegister))
	mux.Handle("POST /logout", session(authHandler.HandleLogout))

	mux.Handle("GET /student", student(studentHandler.HandleDashboard))
	mux.Handle("GET /student/pyqs/filter", student(studentHandler.HandleFilter))
	mux.Handle("POST /student/pyqs/{id}/download", student(studentHandler.HandleDownload))

	mux.Handle("GET /admin", admin(adminHandler.HandleDashboard))
	mux.Handle("GET /admin/upload", admin(adminHandler.HandleUploadPage))
	mux.Handle("POST /admin/upload", admin(adminHandler.HandleUpload))
	mux.Handle("GET /admin/manage", admin(adminHandler.HandleManage))
	mux.Handle("GET /admin/manage/filter", admin(adminHandler.HandleManageFilter))
	mux.Handle("POST /admin/pyqs/{id}/delete", admin(adminHandler.HandleDelete))
}
