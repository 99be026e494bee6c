package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tetsuo-ai/privacy-pool/pool"
)

// Config represents the configuration for the API HTTP server.
type Config struct {
	Host string
	Port int
	Pool *pool.Pool
}

// API is the pool's HTTP front end.
type API struct {
	log    zerolog.Logger
	router *chi.Mux
	pool   *pool.Pool
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(log zerolog.Logger, conf *Config) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Pool == nil {
		return nil, fmt.Errorf("missing pool instance")
	}
	a := &API{
		log:  log,
		pool: conf.Pool,
	}

	a.initRouter()
	go func() {
		log.Info().Str("host", conf.Host).Int("port", conf.Port).Msg("starting API server")
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatal().Err(err).Msg("failed to start the API server")
		}
	}()
	return a, nil
}

// NewRouterOnly builds the API without binding a listener. Used by tests.
func NewRouterOnly(log zerolog.Logger, p *pool.Pool) *API {
	a := &API{log: log, pool: p}
	a.initRouter()
	return a
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	a.router.Get(RootEndpoint, a.root)
	a.router.Get(RootsEndpoint, a.roots)
	a.router.Get(StatsEndpoint, a.stats)
	a.router.Get(NullifierEndpoint, a.nullifier)
	a.router.Get(MembershipEndpoint, a.membership)
	a.router.Post(DepositsEndpoint, a.newDeposit)
	a.router.Post(WithdrawalsEndpoint, a.newWithdrawal)
	a.router.Post(InnocenceEndpoint, a.newInnocence)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
