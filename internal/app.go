package internal

import (
	"cgmd/internal/controllers"
	"cgmd/internal/providers"
	"cgmd/internal/scheduler/interfaces"
	"cgmd/internal/structures"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartupError is an unrecoverable bootstrap failure. The process does not
// start serving.
type StartupError struct {
	Reason string
	Err    error
}

func (e *StartupError) Error() string {
	if e.Err == nil {
		return "startup failed: " + e.Reason
	}
	return fmt.Sprintf("startup failed: %s: %s", e.Reason, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

type App struct {
	WebServer *http.Server
}

// checkTLS loads the configured key pair when TLS is enabled.
func checkTLS(conf structures.TLSConfig) (*tls.Config, error) {
	if !conf.Enabled {
		return nil, nil
	}
	for _, path := range []string{conf.CertFile, conf.KeyFile} {
		if path == "" {
			return nil, &StartupError{Reason: "tls enabled without certificate and key files"}
		}
		if _, err := os.Stat(path); err != nil {
			return nil, &StartupError{Reason: "tls material " + path, Err: err}
		}
	}
	pair, err := tls.LoadX509KeyPair(conf.CertFile, conf.KeyFile)
	if err != nil {
		return nil, &StartupError{Reason: "loading tls key pair", Err: err}
	}
	return &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}, nil
}

// NewHandler builds the query surface: instrumented snapshot routes plus
// health and, when enabled, prometheus metrics.
func NewHandler(router providers.RouterProviderInterface, healthController *controllers.HealthController, conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) http.Handler {
	// Inner mux: query routes
	apiMux := http.NewServeMux()
	router.Mount(apiMux)

	instrumentedAPI := providers.MetricsMiddleware(metrics, logger, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)
	return mux
}

func NewApp(healthController *controllers.HealthController, scheduler interfaces.SchedulerInterface, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) (*App, error) {
	tlsConf, err := checkTLS(conf.WebServer.TLS)
	if err != nil {
		logger.Errorf(providers.TypeApp, "%s", err)
		return nil, err
	}

	logger.Infof(providers.TypeApp, "Starting %s (time zone %s)", conf.AppName, conf.Location())
	scheduler.Restore()

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      NewHandler(router, healthController, conf, logger, metrics),
			TLSConfig:    tlsConf,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	serverErr := make(chan error, 1)
	go func() {
		var err error
		if tlsConf != nil {
			logger.Infof(providers.TypeApp, "Listening HTTPS clients on %s", app.WebServer.Addr)
			err = app.WebServer.ListenAndServeTLS("", "")
		} else {
			logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", app.WebServer.Addr)
			err = app.WebServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	scheduler.Init()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		scheduler.Stop()
		return nil, &StartupError{Reason: "query server", Err: err}
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = app.WebServer.Shutdown(ctx); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	logger.Close()
	return app, nil
}
