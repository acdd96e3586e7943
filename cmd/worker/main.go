package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelinag/skyfare/config"
	"github.com/avelinag/skyfare/internal/cache"
	"github.com/avelinag/skyfare/internal/email"
	"github.com/avelinag/skyfare/internal/farelog"
	"github.com/avelinag/skyfare/internal/kafka"
	"github.com/avelinag/skyfare/internal/pricing"
	"github.com/avelinag/skyfare/internal/repository"
	"github.com/avelinag/skyfare/internal/service/market"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
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

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second,
		time.Duration(cfg.Booking.DemandSignalTTL)*time.Second)

	flightRepo := repository.NewFlightRepository(pool)
	fareRepo := repository.NewFareHistoryRepository(pool)
	recorder := farelog.NewRecorder(fareRepo)
	calc := pricing.NewCalculator(nil)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	interval := time.Duration(cfg.Simulator.TickSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	simulator := market.NewSimulator(flightRepo, recorder, calc, redisCache, interval)

	log.Printf("market simulator running every %s", interval)
	simulator.Run(ctx)
	log.Println("worker shut down")
}
