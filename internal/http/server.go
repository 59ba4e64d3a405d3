// Package http provides the kvproxy HTTP server and client.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-logr/logr"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/leg100/kvproxy/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 5000

	// shutdownTimeout is the time given for outstanding requests to finish
	// before shutdown.
	shutdownTimeout = 1 * time.Second
)

type (
	// ServerConfig is the http server config
	ServerConfig struct {
		Host                 string
		Port                 int
		EnableRequestLogging bool

		Handlers []Handlers
		// Registry serves /metrics. Defaults to the prometheus default
		// registry.
		Registry *prometheus.Registry
	}

	// Handlers is a collection of HTTP handlers that add themselves to a
	// router.
	Handlers interface {
		AddHandlers(r *mux.Router)
	}

	// Server is the http server for kvproxy
	Server struct {
		logr.Logger
		ServerConfig

		server *http.Server
	}
)

// NewServerConfigFromFlags adds flags pertaining to http server config
func NewServerConfigFromFlags(flags *pflag.FlagSet) *ServerConfig {
	cfg := ServerConfig{}
	AddAddressFlags(flags, &cfg.Host, &cfg.Port)
	flags.BoolVar(&cfg.EnableRequestLogging, "log-http-requests", false, "Log HTTP requests")
	return &cfg
}

// AddAddressFlags adds the host and port flags shared by the server, which
// listens on them, and the CLI, which connects to them.
func AddAddressFlags(flags *pflag.FlagSet, host *string, port *int) {
	flags.StringVar(host, "host", DefaultHost, "Host of the kvproxy server")
	flags.IntVar(port, "port", DefaultPort, "Port of the kvproxy server")
}

// Addr returns the host:port on which the server listens.
func (cfg ServerConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// Validate checks the config is complete.
func (cfg ServerConfig) Validate() error {
	if cfg.Host == "" {
		return &internal.InvalidConfigError{Field: "host", Reason: "must not be empty"}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &internal.InvalidConfigError{Field: "port", Reason: "must be between 1 and 65535"}
	}
	return nil
}

// NewServer constructs the http server for kvproxy
func NewServer(logger logr.Logger, cfg ServerConfig) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		Logger:       logger,
		ServerConfig: cfg,
		server:       &http.Server{Handler: NewRouter(logger, cfg)},
	}, nil
}

// NewRouter constructs a router with the configured handlers and the
// server's own routes.
func NewRouter(logger logr.Logger, cfg ServerConfig) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed)
	})

	r.Use(jsonErrors)

	// Catch panics and return 500s
	r.Use(gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(recoveryLogger{logger}),
	))

	// Prometheus metrics
	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})).Methods("GET")
	} else {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	for _, h := range cfg.Handlers {
		h.AddHandlers(r)
	}

	// Optionally log every request
	if cfg.EnableRequestLogging {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				m := httpsnoop.CaptureMetrics(next, w, r)
				logger.Info("request",
					"duration", fmt.Sprintf("%dms", m.Duration.Milliseconds()),
					"status", m.Code,
					"method", r.Method,
					"path", fmt.Sprintf("%s?%s", r.URL.Path, r.URL.RawQuery))
			})
		})
	}
	return r
}

// Start starts serving http traffic on the given listener and waits until the server exits due to
// error or the context is cancelled.
func (s *Server) Start(ctx context.Context, ln net.Listener) (err error) {
	errch := make(chan error, 1)

	go func() {
		errch <- s.server.Serve(ln)
	}()

	s.Info("started server", "address", ln.Addr().String())

	// Block until server stops listening or context is cancelled.
	select {
	case err := <-errch:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Info("gracefully shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return s.server.Close()
		}

		return nil
	}
}

// jsonErrors gives a JSON error body to error responses that have neither a
// body nor a content type, such as the 500 written upon recovering from a
// panic.
func jsonErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			code    int
			written bool
		)
		hooks := httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(c int) {
					if code == 0 && c >= 400 && w.Header().Get("Content-Type") == "" {
						w.Header().Set("Content-Type", "application/json")
						code = c
					}
					next(c)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(b []byte) (int, error) {
					written = true
					return next(b)
				}
			},
		}
		next.ServeHTTP(httpsnoop.Wrap(w, hooks), r)

		if code != 0 && !written {
			json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(code)})
		}
	})
}

func writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(code)})
}

// recoveryLogger reports handler panics through logr.
type recoveryLogger struct {
	logr.Logger
}

func (l recoveryLogger) Println(args ...any) {
	l.Error(errors.New(fmt.Sprint(args...)), "recovered from panic")
}
