package api

import (
	"log/slog"
	"net/http"

	_ "github.com/rohits-web03/radiologix/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rohits-web03/radiologix/internal/api/handlers"
	"github.com/rohits-web03/radiologix/internal/api/middleware"
	"github.com/rohits-web03/radiologix/internal/config"
	"github.com/rs/cors"
)

// Deps are the services the HTTP layer is built from.
type Deps struct {
	Config      config.Config
	Log         *slog.Logger
	Credentials handlers.Credentials
	Tokens      interface {
		handlers.TokenIssuer
		middleware.Verifier
	}
	Scans handlers.ScanService
	Store handlers.Pinger
}

func SetupRouter(d Deps) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(d.Config.CorsConfig())

	authH := handlers.NewAuthHandler(d.Credentials, d.Tokens, d.Config.IsProduction(), d.Log)
	scanH := handlers.NewScanHandler(d.Scans, d.Config.MaxUploadBytes, d.Log)
	sysH := handlers.NewSystemHandler(d.Store, d.Log)

	mainMux.HandleFunc("GET /docs/", httpSwagger.WrapHandler)

	// ---------- PUBLIC ROUTES ----------
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /{$}", sysH.Root)
	apiMux.HandleFunc("GET /health", sysH.Health)
	apiMux.HandleFunc("POST /auth/register", authH.Register)
	apiMux.HandleFunc("POST /auth/login", authH.Login)
	apiMux.HandleFunc("POST /auth/logout", authH.Logout)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("GET /auth/me", authH.Me)
	protectedMux.HandleFunc("POST /scans", scanH.Create)
	protectedMux.HandleFunc("GET /scans", scanH.List)
	protectedMux.HandleFunc("GET /scans/{id}", scanH.Get)

	protected := middleware.Auth(d.Tokens, d.Log)(protectedMux)
	apiMux.Handle("/auth/me", protected)
	apiMux.Handle("/scans", protected)
	apiMux.Handle("/scans/", protected)

	mainMux.Handle("/api/",
		http.StripPrefix("/api", apiMux),
	)

	d.Log.Debug("router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Recover(d.Log)(handler)
	handler = middleware.Logger(d.Log)(handler)
	return handler
}
