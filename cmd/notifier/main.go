package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	claimdomain "github.com/retreivo/retreivo/internal/claim/domain"
	"github.com/retreivo/retreivo/internal/notification/application"
	"github.com/retreivo/retreivo/internal/notification/domain"
	"github.com/retreivo/retreivo/internal/notification/infrastructure/persistence/mysql"
	"github.com/retreivo/retreivo/internal/notification/infrastructure/sender"
	"github.com/retreivo/retreivo/internal/notification/interfaces/consumer"
	"github.com/retreivo/retreivo/pkg/config"
	"github.com/retreivo/retreivo/pkg/logger"
	"github.com/retreivo/retreivo/pkg/mq"
)

var configPath = flag.String("config", "configs/notifier/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     "json",
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	slog.SetDefault(logger.Get())

	// 3. 数据库
	db, err := gorm.Open(gormmysql.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Environment == "dev" {
		if err := db.AutoMigrate(&domain.Notification{}); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 4. 发送器
	notifRepo := mysql.NewNotificationRepository(db)
	emailSender := sender.NewSMTPSender(
		cfg.SMTP.Host,
		strconv.Itoa(cfg.SMTP.Port),
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)
	svc := application.NewNotificationService(notifRepo, emailSender, slog.Default())
	if cfg.Webhook.URL != "" {
		svc.WithWebhook(sender.NewWebhookSender(), cfg.Webhook.URL)
	}

	// 5. Kafka 消费者与死信队列
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	kafkaConsumer, err := mq.NewConsumer(kafkaCfg, claimdomain.ClaimResolvedEventType)
	if err != nil {
		slog.Error("failed to create kafka consumer", "error", err)
		os.Exit(1)
	}
	var dlq *mq.DeadLetterQueue
	var dlqProducer *mq.KafkaProducer
	if cfg.Kafka.DLQTopic != "" {
		dlqProducer, err = mq.NewProducer(kafkaCfg)
		if err != nil {
			slog.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		dlq = mq.NewDeadLetterQueue(dlqProducer, cfg.Kafka.DLQTopic)
	}
	handler := consumer.NewClaimResolvedHandler(svc, slog.Default())

	// 6. 启动
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("notifier consuming", "topic", claimdomain.ClaimResolvedEventType)
		for {
			msg, err := kafkaConsumer.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				slog.Error("failed to read message", "error", err)
				continue
			}
			if err := handler.Handle(ctx, msg); err != nil {
				slog.Error("failed to handle message",
					"topic", msg.Topic, "key", msg.Key, "error", err)
				if dlq != nil {
					if dlqErr := dlq.Send(ctx, msg, "handle failed", err); dlqErr != nil {
						slog.Error("failed to send to dead letter queue",
							"key", msg.Key, "error", dlqErr)
					}
				}
			}
		}
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down notifier...")
		case <-ctx.Done():
		}
		cancel()
		if dlqProducer != nil {
			if err := dlqProducer.Close(); err != nil {
				slog.Error("failed to close kafka producer", "error", err)
			}
		}
		return kafkaConsumer.Close()
	})

	if err := g.Wait(); err != nil {
		slog.Error("notifier exited with error", "error", err)
	}
}
