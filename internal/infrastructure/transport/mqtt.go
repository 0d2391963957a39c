package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/infrastructure/msg"
)

// Handler принимает разобранные сообщения обоих каналов.
type Handler interface {
	OnFrame(payload entity.RawImagePayload) error
	OnBoundingBox(set *entity.BoundingBoxSet) error
}

// SubscriberConfig настройки подписки на два топика.
type SubscriberConfig struct {
	Broker            string
	ClientID          string
	QoS               byte
	ConnectTimeout    time.Duration
	ImageTopic        string
	ImageIsCompressed bool
	BoundingBoxTopic  string
}

// Subscriber получает кадры и рамки из MQTT и передаёт их в Handler.
//
// paho с SetOrderMatters(true) вызывает обработчики последовательно из
// одной горутины, поэтому в узел одновременно приходит не больше одного
// сообщения.
type Subscriber struct {
	cfg     SubscriberConfig
	handler Handler
	log     *zap.Logger
	client  mqtt.Client
}

// NewSubscriber создаёт подписчика. Подключение выполняет Connect.
func NewSubscriber(cfg SubscriberConfig, handler Handler, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{cfg: cfg, handler: handler, log: log}
}

// Connect подключается к брокеру и подписывается на оба топика.
// При переподключении подписка восстанавливается в OnConnect.
func (s *Subscriber) Connect(ctx context.Context) error {
	opts := clientOptions(s.cfg.Broker, s.cfg.ClientID)
	opts.SetOrderMatters(true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.log.Info("mqtt connection established",
			zap.String("broker", s.cfg.Broker),
			zap.String("client_id", s.cfg.ClientID))
		token := c.SubscribeMultiple(map[string]byte{
			s.cfg.ImageTopic:       s.cfg.QoS,
			s.cfg.BoundingBoxTopic: s.cfg.QoS,
		}, s.route)
		go func() {
			if !token.WaitTimeout(s.cfg.ConnectTimeout) {
				s.log.Error("mqtt subscribe timeout")
				return
			}
			if err := token.Error(); err != nil {
				s.log.Error("mqtt subscribe failed", zap.Error(err))
				return
			}
			s.log.Info("subscribed",
				zap.String("image_topic", s.cfg.ImageTopic),
				zap.Bool("image_is_compressed", s.cfg.ImageIsCompressed),
				zap.String("bounding_box_topic", s.cfg.BoundingBoxTopic))
		}()
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		s.log.Warn("mqtt connection lost, will auto-reconnect",
			zap.String("broker", s.cfg.Broker),
			zap.Error(err))
	})

	s.client = mqtt.NewClient(opts)
	s.log.Info("connecting to mqtt broker", zap.String("broker", s.cfg.Broker))
	return wait(ctx, s.client.Connect(), s.cfg.ConnectTimeout, "mqtt connect")
}

// route раскладывает сообщения по топику.
func (s *Subscriber) route(_ mqtt.Client, m mqtt.Message) {
	switch m.Topic() {
	case s.cfg.ImageTopic:
		s.HandleFrame(m.Payload())
	case s.cfg.BoundingBoxTopic:
		s.HandleBoundingBox(m.Payload())
	default:
		s.log.Warn("message on unexpected topic", zap.String("topic", m.Topic()))
	}
}

// HandleFrame разбирает сообщение канала изображений и передаёт его узлу.
func (s *Subscriber) HandleFrame(data []byte) {
	payload, err := msg.DecodeFrame(data, s.cfg.ImageIsCompressed)
	if err != nil {
		s.log.Error("receive image: bad message",
			zap.String("topic", s.cfg.ImageTopic),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return
	}
	// ошибки декодирования узел логирует сам
	_ = s.handler.OnFrame(payload)
}

// HandleBoundingBox разбирает сообщение канала рамок и передаёт его узлу.
func (s *Subscriber) HandleBoundingBox(data []byte) {
	set, err := msg.DecodeBoundingBoxes(data)
	if err != nil {
		s.log.Error("receive bbox: bad message",
			zap.String("topic", s.cfg.BoundingBoxTopic),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return
	}
	_ = s.handler.OnBoundingBox(set)
}

// Close отписывается от топиков и отключается от брокера.
func (s *Subscriber) Close() error {
	if s.client == nil || !s.client.IsConnected() {
		return nil
	}
	token := s.client.Unsubscribe(s.cfg.ImageTopic, s.cfg.BoundingBoxTopic)
	var err error
	if !token.WaitTimeout(2 * time.Second) {
		err = errors.New("mqtt unsubscribe timeout")
	} else {
		err = token.Error()
	}
	s.client.Disconnect(250) // 250ms grace period
	s.log.Info("mqtt disconnected")
	return err
}

// Publisher публикует сообщения обоих каналов. Используется тестовой камерой.
type Publisher struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
}

// NewPublisher подключается к брокеру для публикации.
func NewPublisher(ctx context.Context, broker, clientID string, qos byte, timeout time.Duration) (*Publisher, error) {
	client := mqtt.NewClient(clientOptions(broker, clientID))
	if err := wait(ctx, client.Connect(), timeout, "mqtt connect"); err != nil {
		return nil, err
	}
	return &Publisher{client: client, qos: qos, timeout: timeout}, nil
}

// Publish кодирует сообщение в msgpack и публикует его в топик.
func (p *Publisher) Publish(ctx context.Context, topic string, m any) error {
	payload, err := msg.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return wait(ctx, p.client.Publish(topic, p.qos, false, payload), p.timeout, "mqtt publish")
}

// Close отключается от брокера.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func clientOptions(broker, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	return opts
}

// wait ждёт завершения токена, отмены контекста или таймаута.
func wait(ctx context.Context, token mqtt.Token, timeout time.Duration, op string) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%s: timeout after %s", op, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return nil
}
