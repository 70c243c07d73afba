package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/airport/api"
	"github.com/Domenick1991/airport/config"
	"github.com/Domenick1991/airport/internal/service/booking"
	"github.com/Domenick1991/airport/internal/service/flights"
	"github.com/Domenick1991/airport/internal/service/luggage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const swaggerSpec = "airport.swagger.json"

type Services struct {
	Bookings booking.BookingUseCase
	Flights  flights.FlightUseCase
	Luggage  luggage.LuggageUseCase
}

// Pinger is a dependency probed by the health endpoints.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	checks     map[string]Pinger
	logger     *logrus.Logger
}

// Run starts the gRPC health server and the HTTP API and blocks until ctx is
// cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services, checks map[string]Pinger, logger *logrus.Logger) error {
	s := newServers(cfg, svc, checks, logger)

	errCh := make(chan error, 3)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go s.watchHealth(ctx, 15*time.Second)

	logger.WithFields(logrus.Fields{"http": cfg.HTTP.Address, "grpc": cfg.GRPC.Address}).Info("servers started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, svc Services, checks map[string]Pinger, logger *logrus.Logger) *Servers {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewRouter(cfg, svc, checks, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		checks: checks,
		logger: logger,
	}
}

// NewRouter builds the HTTP API.
func NewRouter(cfg *config.Config, svc Services, checks map[string]Pinger, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.HTTP.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler(checks))

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerSpec))))
	}

	limiter := api.NewClientLimiter(cfg.HTTP.RateLimit.RequestsPerSecond, cfg.HTTP.RateLimit.Burst)
	v1 := router.Group("/api/v1", api.RateLimit(limiter))
	api.NewBookingHandler(svc.Bookings).Register(v1)
	api.NewFlightHandler(svc.Flights).Register(v1.Group("/flights"))
	api.NewLuggageHandler(svc.Luggage).Register(v1)
	return router
}

func probe(ctx context.Context, checks map[string]Pinger) map[string]string {
	status := make(map[string]string, len(checks))
	for name, p := range checks {
		if err := p.Ping(ctx); err != nil {
			status[name] = err.Error()
			continue
		}
		status[name] = "ok"
	}
	return status
}

func healthHandler(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := probe(ctx, checks)
		code := http.StatusOK
		for _, s := range status {
			if s != "ok" {
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": http.StatusText(code), "checks": status})
	}
}

// watchHealth mirrors the dependency probes into the gRPC health service.
func (s *Servers) watchHealth(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		serving := healthpb.HealthCheckResponse_SERVING
		for name, st := range probe(checkCtx, s.checks) {
			if st != "ok" {
				serving = healthpb.HealthCheckResponse_NOT_SERVING
				s.logger.WithFields(logrus.Fields{"dependency": name, "error": st}).Warn("health check failed")
			}
		}
		cancel()
		s.health.SetServingStatus("", serving)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
