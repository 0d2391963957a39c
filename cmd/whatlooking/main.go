package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"whatlooking/config"
	telegram "whatlooking/internal/api/telegram"
	"whatlooking/internal/container"
	"whatlooking/internal/infrastructure/storage"
	"whatlooking/internal/infrastructure/transport"
	"whatlooking/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	if err := run(cfg, log); err != nil {
		log.Error("whatlooking stopped with error", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Создаём хранилище пользователей
	userRepo := storage.NewMemoryUserRepository()

	// Собираем сервисы приложения
	c := container.New(userRepo, log, cfg.Vision.MaxPixels)
	defer c.Node.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.Hub.Run(ctx)
		return nil
	})

	server := c.Server(log.Named("http"))
	g.Go(func() error {
		return server.Run(ctx, cfg.HTTP.Addr)
	})

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, c.UserService, c.Node, c.Annotator, cfg.Telegram.PushInterval, log.Named("telegram"))
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		c.Node.AddSink(bot)
		g.Go(func() error {
			return bot.Run(ctx)
		})
	} else {
		log.Info("telegram token is empty, bot disabled")
	}

	sub := transport.NewSubscriber(transport.SubscriberConfig{
		Broker:            cfg.MQTT.Broker,
		ClientID:          cfg.MQTT.ClientID,
		QoS:               cfg.MQTT.QoS,
		ConnectTimeout:    cfg.MQTT.ConnectTimeout,
		ImageTopic:        cfg.Topic(cfg.ImageTopic),
		ImageIsCompressed: cfg.ImageIsCompressed,
		BoundingBoxTopic:  cfg.Topic(cfg.BoundingBoxTopic),
	}, c.Node, log.Named("mqtt"))
	if err := sub.Connect(ctx); err != nil {
		stop()
		_ = g.Wait()
		return fmt.Errorf("connect to broker: %w", err)
	}

	log.Info("whatlooking is running",
		zap.String("image_topic", cfg.Topic(cfg.ImageTopic)),
		zap.Bool("image_is_compressed", cfg.ImageIsCompressed),
		zap.String("bounding_box_topic", cfg.Topic(cfg.BoundingBoxTopic)),
		zap.String("http_addr", cfg.HTTP.Addr))

	<-ctx.Done()
	if err := sub.Close(); err != nil {
		log.Warn("mqtt close", zap.Error(err))
	}
	return g.Wait()
}
