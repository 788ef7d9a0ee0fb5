package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partyrush/backend/internal/auth"
	"github.com/partyrush/backend/internal/game"
	"github.com/partyrush/backend/internal/handler"
	adminhandler "github.com/partyrush/backend/internal/handler/admin"
	"github.com/partyrush/backend/internal/ledger"
	"github.com/partyrush/backend/internal/realtime"
	"github.com/partyrush/backend/internal/repository"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool   *pgxpool.Pool
	JWTMgr *auth.JWTManager
	Hub    *realtime.Hub
	Pub    realtime.Publisher
	Logger *slog.Logger

	MediaDir           string
	BaseURL            string
	BettingWindow      time.Duration
	CORSAllowedOrigins string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Repositories
	sessionRepo := repository.NewSessionRepository()
	playerRepo := repository.NewPlayerRepository()
	progressRepo := repository.NewProgressRepository()
	txRepo := repository.NewTransactionRepository()
	crashRepo := repository.NewCrashRepository()
	rigRepo := repository.NewRigRepository()
	snapshotRepo := repository.NewSnapshotRepository()
	selfieRepo := repository.NewSelfieRepository()
	adminRepo := repository.NewAdminRepository()

	// Ledger engine
	ledgerEngine := ledger.NewEngine(playerRepo, txRepo)

	// Services
	gameSvc := game.NewService(pool, sessionRepo, playerRepo, progressRepo, snapshotRepo, ledgerEngine, deps.Pub, logger)
	crashSvc := game.NewCrashService(pool, sessionRepo, playerRepo, crashRepo, rigRepo, ledgerEngine, deps.Pub, deps.BettingWindow, logger)
	adminSvc := game.NewAdminService(pool, adminRepo, sessionRepo, playerRepo, progressRepo, txRepo, rigRepo, ledgerEngine, jwtMgr, deps.Pub, logger)
	selfieSvc := game.NewSelfieService(pool, sessionRepo, playerRepo, selfieRepo, deps.MediaDir, deps.BaseURL, deps.Pub, logger)

	// Handlers
	sessionHandler := handler.NewSessionHandler(gameSvc)
	progressHandler := handler.NewProgressHandler(gameSvc)
	crashHandler := handler.NewCrashHandler(crashSvc)
	selfieHandler := handler.NewSelfieHandler(selfieSvc)
	wsHandler := handler.NewWSHandler(gameSvc, deps.Hub, logger)
	consoleHandler := adminhandler.NewConsoleHandler(adminSvc)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(deps.CORSAllowedOrigins))

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// WebSocket upgrade (no JSON content-type)
	r.Get("/ws/sessions/{code}", wsHandler.Serve)

	// Uploaded selfie images
	fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaDir)))
	r.Get("/media/*", fileServer.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(handler.JSONContentType)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/{code}", sessionHandler.Get)
			r.Post("/{code}/join", sessionHandler.Join)
			r.Post("/{code}/start", sessionHandler.Start)
			r.Get("/{code}/selfies", selfieHandler.List)

			r.Route("/{code}/crash", func(r chi.Router) {
				r.Post("/rounds", crashHandler.CreateRound)
				r.Get("/rounds", crashHandler.ListRounds)
			})
		})

		r.Post("/progress", progressHandler.Submit)
		r.Post("/selfies", selfieHandler.Upload)

		r.Route("/crash", func(r chi.Router) {
			r.Post("/rounds/{id}/finish", crashHandler.FinishRound)
			r.Post("/rounds/{id}/bets", crashHandler.PlaceBet)
			r.Post("/rounds/{id}/cashout", crashHandler.Cashout)
			r.Get("/bets", crashHandler.BetHistory)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", consoleHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(auth.AuthenticateAdmin(jwtMgr))

				r.Get("/sessions/{code}/players", consoleHandler.ListPlayers)
				r.Get("/players/{id}", consoleHandler.InspectPlayer)
				r.Delete("/players/{id}", consoleHandler.DeletePlayer)
				r.Post("/players/{id}/points", consoleHandler.AdjustPoints)
				r.Post("/rig", consoleHandler.CreateRig)
			})
		})
	})

	return r
}
