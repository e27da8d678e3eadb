package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"beatwise/internal/config"
	"beatwise/internal/http-server/handlers/account"
	"beatwise/internal/http-server/handlers/admin"
	"beatwise/internal/http-server/handlers/auth"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/internal/http-server/handlers/game"
	"beatwise/internal/http-server/handlers/leaderboard"
	"beatwise/internal/http-server/handlers/quest"
	"beatwise/internal/http-server/handlers/referral"
	"beatwise/internal/http-server/middleware/authenticate"
	"beatwise/internal/http-server/middleware/logger"
	"beatwise/internal/http-server/middleware/timeout"
	"beatwise/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const requestTimeout = 10 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	auth.Core
	account.Core
	game.Core
	quest.Core
	referral.Core
	leaderboard.Core
	admin.Core
}

// NewRouter builds the route table. metrics may be nil.
func NewRouter(log *slog.Logger, handler Handler, metrics http.Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(timeout.Timeout(requestTimeout))
	router.Use(middleware.RequestID)
	router.Use(logger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(v1 chi.Router) {
		v1.Route("/auth", func(r chi.Router) {
			r.Get("/message", auth.Message(log, handler))
			r.Post("/wallet", auth.Wallet(log, handler))
		})
		v1.Route("/accounts/{wallet}", func(r chi.Router) {
			r.Get("/", account.Get(log, handler))
			r.Post("/identities/{platform}", account.LinkIdentity(log, handler))
		})
		v1.Route("/game/{wallet}", func(r chi.Router) {
			r.Get("/quota", game.Quota(log, handler))
			r.Post("/play", game.Play(log, handler))
			r.Post("/result", game.Result(log, handler))
		})
		v1.Route("/quests/{wallet}", func(r chi.Router) {
			r.Get("/", quest.List(log, handler))
			r.Post("/{task}", quest.Complete(log, handler))
		})
		v1.Route("/referrals/{wallet}", func(r chi.Router) {
			r.Get("/", referral.Info(log, handler))
			r.Post("/", referral.Apply(log, handler))
		})
		v1.Route("/leaderboard/{scope}", func(r chi.Router) {
			r.Get("/", leaderboard.Top(log, handler))
			r.Get("/{wallet}", leaderboard.Rank(log, handler))
		})
		v1.Route("/admin", func(r chi.Router) {
			r.Use(authenticate.New(log, handler))
			r.Post("/credit", admin.Credit(log, handler))
			r.Post("/game/{wallet}/reset", admin.ResetGame(log, handler))
		})
	})

	if metrics != nil {
		router.Method(http.MethodGet, "/metrics", metrics)
	}

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, metrics http.Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      NewRouter(log, handler, metrics),
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
