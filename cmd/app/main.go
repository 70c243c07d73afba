package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airport/config"
	"github.com/Domenick1991/airport/internal/bootstrap"
	"github.com/Domenick1991/airport/internal/cache"
	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/Domenick1991/airport/internal/logging"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/Domenick1991/airport/internal/repository/readmodel"
	"github.com/Domenick1991/airport/internal/service"
	"github.com/Domenick1991/airport/internal/service/booking"
	"github.com/Domenick1991/airport/internal/service/flights"
	"github.com/Domenick1991/airport/internal/service/luggage"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Fatalf("load env: %v", err)
	}
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			logger.WithError(err).Fatal("migrate")
		}
	}
	if cfg.Booking.TicketSeed != "" {
		if err := repository.SeedTicketSequence(ctx, pool, cfg.Booking.TicketSeed); err != nil {
			logger.WithError(err).Fatal("seed ticket sequence")
		}
	}

	reader, err := readmodel.Open(cfg.Database.ReadDSN(), cfg.Database.ReadMaxOpen, time.Duration(cfg.Database.ConnMaxLifetime)*time.Minute)
	if err != nil {
		logger.WithError(err).Fatal("connect read model")
	}
	defer reader.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCache())
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		logger.WithError(err).Warn("redis unavailable, seat holds and flight cache degrade")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()
	events := service.NewEvents(producer, logger, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic)

	store := repository.NewStore(pool)
	services := bootstrap.Services{
		Bookings: booking.NewBookingService(store, reader, logger,
			booking.WithSeatLocks(redisCache, cfg.Booking.SeatHold()),
			booking.WithEvents(events),
		),
		Flights: flights.NewFlightService(store, reader, redisCache, logger,
			flights.WithGateCount(cfg.Booking.GateCount),
			flights.WithEvents(events),
		),
		Luggage: luggage.NewLuggageService(store, reader, logger, luggage.WithEvents(events)),
	}
	checks := map[string]bootstrap.Pinger{
		"postgres":   pool,
		"read_model": reader,
		"redis":      redisCache,
		"kafka":      bootstrap.PingFunc(producer.CheckConnection),
	}

	if err := bootstrap.Run(ctx, cfg, services, checks, logger); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
