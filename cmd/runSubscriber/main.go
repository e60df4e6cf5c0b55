package main

import (
	"context"
	"github.com/ZilDuck/membership-market/internal/config"
	"github.com/ZilDuck/membership-market/internal/config/di"
	"github.com/ZilDuck/membership-market/internal/elastic_search"
	"github.com/ZilDuck/membership-market/internal/messenger"
	"github.com/ZilDuck/membership-market/internal/repository"
	"github.com/aws/aws-sdk-go/service/sqs"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config.Init("runSubscriber")

	container, err := di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}
	defer container.Delete()

	if err := container.GetElastic().InstallMappings(); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to install mappings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageService := container.GetMessenger()
	runs := repository.NewBillingRunRepository(container.GetElastic())

	zap.L().Info("Subscribing to billing runs")
	messages := make(chan *sqs.Message, 10)
	go func() {
		if err := messageService.PollMessages(ctx, messenger.BillingRunCompleted, messages); err != nil && ctx.Err() == nil {
			zap.L().With(zap.Error(err)).Error("Polling stopped")
		}
	}()

	for message := range messages {
		handle(messageService, runs, message)
	}
}

func handle(messageService messenger.MessageService, runs repository.BillingRunRepository, message *sqs.Message) {
	run, err := messenger.DecodeRun(message)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to read message")
		return
	}

	if err := runs.Save(run); err != nil {
		zap.L().With(zap.Error(err), zap.String("run", run.Id)).Error("Failed to index billing run")
		return
	}
	zap.L().With(zap.String("run", run.Id), zap.String("index", elastic_search.BillingRunIndex.Get())).Info("Billing run indexed")

	if err := messageService.DeleteMessage(messenger.BillingRunCompleted, message); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to delete message")
	}
}
