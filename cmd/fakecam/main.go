// fakecam публикует кадры и рамки в брокер вместо камеры и детектора.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whatlooking/config"
	"whatlooking/internal/domain/entity"
	"whatlooking/internal/infrastructure/msg"
	"whatlooking/internal/infrastructure/transport"
	"whatlooking/internal/logger"
)

func main() {
	var (
		imagePath = flag.String("image", "", "путь к JPEG/PNG, который публикуется как кадр")
		interval  = flag.Duration("interval", time.Second, "пауза между кадрами")
		refWidth  = flag.Int("ref-width", 640, "эталонная ширина в сообщении с рамками")
		refHeight = flag.Int("ref-height", 480, "эталонная высота в сообщении с рамками")
		count     = flag.Int("count", 0, "сколько кадров отправить, 0 — без ограничения")
	)
	flag.Parse()

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

	if *imagePath == "" {
		log.Fatal("-image is required")
	}
	image, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatal("failed to read image", zap.String("path", *imagePath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := transport.NewPublisher(ctx, cfg.MQTT.Broker, "fakecam-"+uuid.NewString(), cfg.MQTT.QoS, cfg.MQTT.ConnectTimeout)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer pub.Close()

	imageTopic := cfg.Topic(cfg.ImageTopic)
	boxTopic := cfg.Topic(cfg.BoundingBoxTopic)
	frame := &msg.CompressedImage{Format: "jpeg", Data: image}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for i := 0; *count == 0 || i < *count; i++ {
		if err := pub.Publish(ctx, imageTopic, frame); err != nil {
			log.Error("failed to publish frame", zap.Error(err))
		}

		boxes := []entity.Box{{
			Left:   (i * 16) % (*refWidth / 2),
			Top:    *refHeight / 4,
			Width:  *refWidth / 4,
			Height: *refHeight / 3,
		}}
		if err := pub.Publish(ctx, boxTopic, msg.NewBoundingBoxMessage(*refWidth, *refHeight, boxes)); err != nil {
			log.Error("failed to publish bounding boxes", zap.Error(err))
		}
		log.Debug("published", zap.Int("seq", i), zap.String("image_topic", imageTopic), zap.String("bounding_box_topic", boxTopic))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
