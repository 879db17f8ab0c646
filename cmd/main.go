package main

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/stylelane/orders-service/internal/config"
	"github.com/stylelane/orders-service/internal/handlers"
	"github.com/stylelane/orders-service/internal/messaging"
	"github.com/stylelane/orders-service/internal/policy"
	"github.com/stylelane/orders-service/internal/repository"
	"github.com/stylelane/orders-service/internal/service"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()
	log.Info("orders service starting", zap.String("port", cfg.Port))

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(db, cfg.MigrationsPath); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	rabbitConfig := messaging.NewRabbitMQConfig()
	rabbitClient := messaging.NewRabbitMQClient(rabbitConfig, log)
	if err := rabbitClient.Connect(); err != nil {
		log.Fatal("rabbitmq connection failed", zap.Error(err))
	}
	defer rabbitClient.Close()

	publisher := messaging.NewPublisher(rabbitClient, log)

	orderRepo := repository.NewPostgresOrderRepository(db)
	returnRepo := repository.NewPostgresReturnRepository(db)
	inventory := repository.NewPostgresInventory(db)
	evaluator := policy.NewEvaluator()

	orderService := service.NewOrderService(
		orderRepo, inventory, inventory, inventory, evaluator, publisher, log)
	returnService := service.NewReturnService(
		returnRepo, orderRepo, inventory, evaluator, publisher, log)

	sweeper := service.NewSweeper(inventory, inventory, cfg.SweepInterval, cfg.SweepGrace, log)
	sweeper.Start()
	defer sweeper.Close()

	orderHandler := handlers.NewOrderHandler(orderService)
	returnHandler := handlers.NewReturnHandler(returnService)
	app := handlers.NewApp(orderHandler, returnHandler)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("orders service shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server start failed", zap.Error(err))
	}
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("database open error: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database ping error: %w", err)
	}
	return db, nil
}

func runMigrations(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration setup error: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up error: %w", err)
	}
	return nil
}
