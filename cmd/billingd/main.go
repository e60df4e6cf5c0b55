package main

import (
	"context"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/config"
	"github.com/ZilDuck/membership-market/internal/config/di"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/event"
	"github.com/ZilDuck/membership-market/internal/messenger"
	"go.uber.org/zap"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	config.Init("billingd")
	container, err := di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Get().Billing.Publish {
		messageService := container.GetMessenger()
		event.AddEventListener(event.BillingRunCompletedEvent, func(msg interface{}) {
			run := msg.(entity.BillingRun)
			if err := messenger.PublishRun(messageService, run); err != nil {
				zap.L().With(zap.Error(err), zap.String("run", run.Id)).Error("Failed to publish billing run")
			}
		})
	}

	d := container.GetDaemon()
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Get().HealthPort),
		Handler: router(d, container.GetRunRepository()),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().With(zap.Error(err)).Error("Failed to start health server")
		}
	}()

	zap.L().With(zap.Int("port", config.Get().HealthPort)).Info("Billing daemon Started")

	d.Execute(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdown)

	event.Shutdown()
	_ = container.Delete()
	_ = zap.L().Sync()
}
