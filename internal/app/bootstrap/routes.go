// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	adminfeature "github.com/dalemusser/flyspot/internal/app/features/admin"
	authgooglefeature "github.com/dalemusser/flyspot/internal/app/features/authgoogle"
	errorsfeature "github.com/dalemusser/flyspot/internal/app/features/errors"
	healthfeature "github.com/dalemusser/flyspot/internal/app/features/health"
	homefeature "github.com/dalemusser/flyspot/internal/app/features/home"
	loginfeature "github.com/dalemusser/flyspot/internal/app/features/login"
	logoutfeature "github.com/dalemusser/flyspot/internal/app/features/logout"
	mapeventsfeature "github.com/dalemusser/flyspot/internal/app/features/mapevents"
	mapsfeature "github.com/dalemusser/flyspot/internal/app/features/maps"
	passwordfeature "github.com/dalemusser/flyspot/internal/app/features/password"
	profilefeature "github.com/dalemusser/flyspot/internal/app/features/profile"
	publicmapfeature "github.com/dalemusser/flyspot/internal/app/features/publicmap"
	registerfeature "github.com/dalemusser/flyspot/internal/app/features/register"
	sharesfeature "github.com/dalemusser/flyspot/internal/app/features/shares"
	spotsfeature "github.com/dalemusser/flyspot/internal/app/features/spots"
	tagsfeature "github.com/dalemusser/flyspot/internal/app/features/tags"
	userinfofeature "github.com/dalemusser/flyspot/internal/app/features/userinfo"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/auth"
	"github.com/dalemusser/flyspot/internal/app/system/imageupload"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. FlySpot applies panic recovery and the session
// middleware globally, then mounts one router per feature. Each feature
// decides inside its own Routes which endpoints need a signed-in user;
// the access evaluator makes every finer decision.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser fetches fresh user data on each request so role
	// changes and deleted accounts take effect immediately.
	db := deps.MongoDatabase
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	svc := deps.Services
	uploads := imageupload.New(deps.Storage, appCfg.MaxImageBytes, appCfg.MaxImagesPerSpot, logger)
	errorsHandler := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()
	r.Use(errorsHandler.Recoverer)
	r.Use(sessionMgr.LoadSessionUser)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.StorageType, appCfg.MQBackend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Uploaded images, when they live on local disk. Remote backends hand
	// out their own URLs.
	if appCfg.StorageType == "local" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Landing document and session identity
	homeHandler := homefeature.NewHandler(db, appCfg.SiteName, logger)
	r.Mount("/", homefeature.Routes(homeHandler))
	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())
	r.Get("/forbidden", errorsHandler.Forbidden)

	// Authentication
	var googleProvider authgooglefeature.Provider
	if appCfg.GoogleEnabled() {
		googleProvider = authgooglefeature.NewGoogleProvider(appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL+"/auth/google/callback")
	}
	loginHandler := loginfeature.NewHandler(db, sessionMgr, svc.Limiter, svc.Audit, appCfg.GoogleEnabled(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.Audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	registerHandler := registerfeature.NewHandler(db, svc.Mail, svc.Limiter, appCfg.SiteName, appCfg.BaseURL, appCfg.VerifyTokenExpiry, svc.Audit, logger)
	passwordHandler := passwordfeature.NewHandler(db, svc.Mail, svc.Limiter, appCfg.SiteName, appCfg.BaseURL, appCfg.ResetTokenExpiry, svc.Audit, logger)
	googleHandler := authgooglefeature.NewHandler(db, sessionMgr, googleProvider, svc.Audit, logger)
	r.Route("/auth", func(ar chi.Router) {
		ar.Mount("/", registerfeature.Routes(registerHandler))
		ar.Mount("/password", passwordfeature.Routes(passwordHandler, sessionMgr))
		ar.Mount("/google", authgooglefeature.Routes(googleHandler))
	})

	// Signed-in areas
	profileHandler := profilefeature.NewHandler(db, uploads, appCfg.MaxAvatarBytes, logger)
	mapsHandler := mapsfeature.NewHandler(db, deps.Storage, svc.Notifier, logger)
	sharesHandler := sharesfeature.NewHandler(db, svc.Invites, svc.Notifier, logger)
	r.Group(func(pr chi.Router) {
		pr.Use(sessionMgr.RequireSignedIn)
		pr.Mount("/profile", profilefeature.Routes(profileHandler))
		pr.Mount("/maps", mapsfeature.Routes(mapsHandler, sharesfeature.Routes(sharesHandler)))
	})

	mapEventsHandler := mapeventsfeature.NewHandler(svc.Broker, logger)
	r.Mount("/events", mapeventsfeature.Routes(mapEventsHandler, sessionMgr))

	// Spots are partly public; the router guards the writes.
	spotsHandler := spotsfeature.NewHandler(db, uploads, svc.Notifier, svc.Audit, logger)
	r.Mount("/spots", spotsfeature.Routes(spotsHandler, sessionMgr))

	tagsHandler := tagsfeature.NewHandler(db, logger)
	r.Mount("/tags", tagsfeature.Routes(tagsHandler))

	// Read-only public link
	publicMapHandler := publicmapfeature.NewHandler(db, logger)
	r.Mount("/m", publicmapfeature.Routes(publicMapHandler))

	// Site administration
	adminHandler := adminfeature.NewHandler(db, deps.Storage, svc.Notifier, svc.Audit, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler, sessionMgr))

	return r, nil
}
