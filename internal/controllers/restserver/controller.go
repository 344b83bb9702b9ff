package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/interfaces"
	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	stations   interfaces.StationReader
	ingester   interfaces.Ingester
	health     *storage.HealthManager
	gatherer   prometheus.Gatherer
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// Deps carries the collaborators the REST server reads from and writes to.
// Ingester may be nil when the ingest endpoint is disabled.
type Deps struct {
	Stations interfaces.StationReader
	Ingester interfaces.Ingester
	Health   *storage.HealthManager
	Gatherer prometheus.Gatherer
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, deps Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Stations == nil {
		return nil, fmt.Errorf("REST server requires a station reader")
	}
	if rc.EnableIngest && deps.Ingester == nil {
		return nil, fmt.Errorf("REST ingest is enabled but no ingester was provided")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		stations:   deps.Stations,
		ingester:   deps.Ingester,
		health:     deps.Health,
		gatherer:   deps.Gatherer,
		logger:     logger,
	}

	if ctrl.health == nil {
		ctrl.health = storage.NewHealthManager()
	}
	if ctrl.gatherer == nil {
		ctrl.gatherer = prometheus.DefaultGatherer
	}

	// If a listen address was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Infof("rest.listen-addr not provided; defaulting to %s (all interfaces)", config.DefaultListenAddr)
		rc.ListenAddr = config.DefaultListenAddr
	}

	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultPort)
		rc.Port = config.DefaultPort
	}
	ctrl.restConfig = rc

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server controller on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the full middleware chain around the router
func (c *Controller) Handler() http.Handler {
	origins := c.restConfig.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	return log.HTTPAccessLog(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(cors(c.setupRouter())))
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stations", c.handlers.ListStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}", c.handlers.GetView).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/view", c.handlers.GetView).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/trend", c.handlers.GetTrend).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/surge", c.handlers.GetSurge).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/prediction", c.handlers.GetPrediction).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/history", c.handlers.GetHistory).Methods(http.MethodGet)

	// The ingest seam is only exposed when explicitly enabled
	if c.restConfig.EnableIngest {
		api.HandleFunc("/stations/{id}/readings", c.handlers.PostReading).Methods(http.MethodPost)
	}

	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(c.handlers.NotFound)

	return router
}
