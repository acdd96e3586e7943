package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelinag/skyfare/config"
	"github.com/avelinag/skyfare/internal/bootstrap"
	"github.com/avelinag/skyfare/internal/cache"
	"github.com/avelinag/skyfare/internal/domain"
	"github.com/avelinag/skyfare/internal/farelog"
	"github.com/avelinag/skyfare/internal/kafka"
	"github.com/avelinag/skyfare/internal/pricing"
	"github.com/avelinag/skyfare/internal/repository"
	"github.com/avelinag/skyfare/internal/service/booking"
	"github.com/avelinag/skyfare/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		flightRepo  repository.FlightRepository
		bookingRepo repository.BookingRepository
		fareRepo    repository.FareHistoryRepository
	)
	switch cfg.Storage.Backend {
	case "memory":
		store := repository.NewMemoryStore()
		store.SeedFlights(demoFlights())
		flightRepo, bookingRepo, fareRepo = store, store, store
	default:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		flightRepo = repository.NewFlightRepository(pool)
		bookingRepo = repository.NewBookingRepository(pool)
		fareRepo = repository.NewFareHistoryRepository(pool)
	}

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second,
		time.Duration(cfg.Booking.DemandSignalTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	calc := pricing.NewCalculator(nil)
	recorder := farelog.NewRecorder(fareRepo)

	flightService := flights.NewFlightService(flightRepo, fareRepo, calc, recorder, redisCache)
	bookingService := booking.NewBookingService(
		bookingRepo,
		calc,
		recorder,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, flightService, bookingService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// demoFlights seeds the memory backend so the engine runs without Postgres.
func demoFlights() []domain.Flight {
	departure := time.Now().Add(48 * time.Hour)
	return []domain.Flight{
		{ID: 1, FlightNumber: "SF101", Origin: "DEL", Destination: "BOM", DepartureTime: departure, ArrivalTime: departure.Add(2 * time.Hour), TotalSeats: 180, AvailableSeats: 180, BaseFare: 3500},
		{ID: 2, FlightNumber: "SF202", Origin: "BOM", Destination: "BLR", DepartureTime: departure.Add(6 * time.Hour), ArrivalTime: departure.Add(8 * time.Hour), TotalSeats: 120, AvailableSeats: 120, BaseFare: 1800},
		{ID: 3, FlightNumber: "SF303", Origin: "DEL", Destination: "MAA", DepartureTime: departure.Add(26 * time.Hour), ArrivalTime: departure.Add(29 * time.Hour), TotalSeats: 200, AvailableSeats: 200, BaseFare: 5200},
	}
}
