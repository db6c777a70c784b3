package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/app"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/config"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/events"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/gateway"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/handler"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/postgres"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/repo"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/cache"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/trm"

	"github.com/joho/godotenv"
)

// @title           Order Lifecycle Service API
// @version         1.0
// @description     Управление жизненным циклом заказа: позиции, отгрузки, платежи, возвраты, налоги
func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	store := repo.NewPostgresRepo(db)
	txManager := trm.NewManager(db)

	rateCache := cache.NewLRUCache(conf.TaxRates.CacheCapacity, conf.TaxRates.CacheTTL)
	rates := gateway.NewCachedRateLookup(
		gateway.NewRateLookupClient(conf.TaxRates.BaseURL, conf.TaxRates.Timeout),
		rateCache,
	)
	payments := gateway.NewPaymentClient(conf.Gateway.BaseURL, conf.Gateway.Timeout)
	publisher := events.NewPublisher(logger, conf.Kafka)

	orderService := service.NewOrderService(logger, txManager, store, store, store, publisher)
	fulfillmentService := service.NewFulfillmentService(logger, txManager, store, store, store, publisher)
	paymentService := service.NewPaymentService(logger, txManager, store, store, store, payments, publisher)
	taxService := service.NewTaxService(logger, txManager, store, store, rates)
	noteService := service.NewNoteService(logger, txManager, store, store)

	httpHandler := handler.NewHTTPHandler(logger, orderService, fulfillmentService, paymentService, taxService, noteService)
	handler.RegisterMetrics()

	app := app.New(logger, conf)
	app.SetHTTPHandlers(httpHandler)
	app.SetStarters(rateCache)
	app.SetClosers(publisher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app.Start(ctx)
	<-ctx.Done()
	app.Stop()
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}
