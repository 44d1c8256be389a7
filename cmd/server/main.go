package main

import (
	"context"
	"time"

	"compost-be/internal/config"
	"compost-be/internal/db"
	"compost-be/internal/logger"
	"compost-be/internal/notification"
	"compost-be/internal/order"
	"compost-be/internal/payment"
	"compost-be/internal/product"
	"compost-be/internal/realtime"
	"compost-be/internal/rider"
	"compost-be/internal/server"
	"compost-be/internal/ussd"
	"compost-be/internal/user"
	"compost-be/internal/waste"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pendingPaymentTTL = 30 * time.Minute

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	var publisher realtime.Publisher = realtime.NoopPublisher{}
	var subscriber *realtime.Subscriber
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		publisher = realtime.NewPublisher(rdb)
		subscriber = realtime.NewSubscriber(rdb)
	} else {
		logger.L().Warn("REDIS_ADDR not set, realtime events disabled")
	}

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo, cfg.JWTSecret)

	riderRepo := rider.NewRepository(database)
	productRepo := product.NewRepository(database)

	notificationRepo := notification.NewRepository(database)
	notificationSvc := notification.NewService(notificationRepo, publisher)

	gateway := payment.NewMpesaGateway(cfg.Mpesa)
	paymentRepo := payment.NewRepository(database)
	paymentSvc := payment.NewService(paymentRepo, gateway, cfg.Mpesa, notificationSvc, publisher)

	wasteRepo := waste.NewRepository(database)
	wasteSvc := waste.NewService(
		wasteRepo, riderRepo, userRepo, paymentSvc, productRepo, publisher, cfg.PayoutRatePerKg,
	)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, riderRepo, productRepo, publisher)

	menu := ussd.NewMenu(userRepo, wasteSvc, paymentSvc)

	go expirePendingPayments(paymentSvc)

	srv := server.New(server.Deps{
		Config:        *cfg,
		Users:         userSvc,
		Wastes:        wasteSvc,
		Orders:        orderSvc,
		Payments:      paymentSvc,
		Notifications: notificationSvc,
		Riders:        riderRepo,
		Products:      productRepo,
		Subscriber:    subscriber,
		USSD:          menu,
	})

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	logger.L().Info("server starting", zap.String("port", port))
	if err := srv.Start(":" + port); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

// expirePendingPayments sweeps STK charges whose callback never arrived.
func expirePendingPayments(svc payment.Service) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := svc.ExpirePending(ctx, pendingPaymentTTL); err != nil {
			logger.L().Error("pending payment sweep failed", zap.Error(err))
		}
		cancel()
	}
}
