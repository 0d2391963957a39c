package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Ключи настроек.
const (
	KeyNamespace         = "namespace"
	KeyImageTopic        = "image_topic"
	KeyImageIsCompressed = "image_is_compressed"
	KeyBoundingBoxTopic  = "bounding_box_topic"
	KeyMQTTBroker        = "mqtt.broker"
	KeyMQTTClientID      = "mqtt.client_id"
	KeyMQTTQoS           = "mqtt.qos"
	KeyMQTTTimeout       = "mqtt.connect_timeout"
	KeyHTTPAddr          = "http.addr"
	KeyTelegramToken     = "telegram.token"
	KeyTelegramPush      = "telegram.push_interval"
	KeyLogMode           = "log.mode"
	KeyVisionMaxPixels   = "vision.max_pixels"
)

// EnvConfigFile задаёт путь к YAML-файлу настроек.
const EnvConfigFile = "WHATLOOKING_CONFIG"

// ErrConfiguration общий признак ошибки конфигурации.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError возвращается, если настройка не задана и не имеет значения по умолчанию.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return "fetch of parameter that does not exist: " + e.Key
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

type Config struct {
	Namespace         string
	ImageTopic        string
	ImageIsCompressed bool
	BoundingBoxTopic  string
	MQTT              MQTTConfig
	HTTP              HTTPConfig
	Telegram          TelegramConfig
	Log               LogConfig
	Vision            VisionConfig
}

type MQTTConfig struct {
	Broker         string
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
}

type HTTPConfig struct {
	Addr string
}

type TelegramConfig struct {
	Token        string
	PushInterval time.Duration
}

type LogConfig struct {
	Mode string
}

type VisionConfig struct {
	// MaxPixels ограничивает width*height декодируемого кадра
	MaxPixels int
}

// Topic добавляет пространство имён узла к имени топика.
func (c *Config) Topic(name string) string {
	if c.Namespace == "" || strings.HasPrefix(name, "/") {
		return strings.TrimPrefix(name, "/")
	}
	return c.Namespace + "/" + name
}

// Parameters хранит именованные типизированные настройки со значениями по умолчанию.
type Parameters struct {
	v *viper.Viper
}

// NewParameters создаёт набор настроек: значения по умолчанию,
// затем переменные окружения (mqtt.broker -> MQTT_BROKER).
func NewParameters() *Parameters {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Parameters{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyNamespace, "raspicam")
	v.SetDefault(KeyImageTopic, "raspicam_compressed")
	v.SetDefault(KeyImageIsCompressed, true)
	v.SetDefault(KeyBoundingBoxTopic, "found_faces")

	v.SetDefault(KeyMQTTBroker, "tcp://localhost:1883")
	v.SetDefault(KeyMQTTClientID, "whatlooking-"+uuid.NewString())
	v.SetDefault(KeyMQTTQoS, 0)
	v.SetDefault(KeyMQTTTimeout, 10*time.Second)

	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyTelegramToken, "")
	v.SetDefault(KeyTelegramPush, 5*time.Second)
	v.SetDefault(KeyLogMode, "debug")
	v.SetDefault(KeyVisionMaxPixels, 8192*4096)
}

// ReadFile подмешивает YAML-файл поверх значений по умолчанию.
func (p *Parameters) ReadFile(path string) error {
	p.v.SetConfigFile(path)
	p.v.SetConfigType("yaml")
	if err := p.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Set задаёт значение явно.
func (p *Parameters) Set(key string, value any) {
	p.v.Set(key, value)
}

// Has сообщает, задана ли настройка (в том числе значением по умолчанию).
func (p *Parameters) Has(key string) bool {
	return p.v.IsSet(key)
}

func (p *Parameters) require(key string) error {
	if !p.v.IsSet(key) {
		return &ConfigurationError{Key: key}
	}
	return nil
}

func (p *Parameters) String(key string) (string, error) {
	if err := p.require(key); err != nil {
		return "", err
	}
	return p.v.GetString(key), nil
}

func (p *Parameters) Bool(key string) (bool, error) {
	if err := p.require(key); err != nil {
		return false, err
	}
	return p.v.GetBool(key), nil
}

func (p *Parameters) Int(key string) (int, error) {
	if err := p.require(key); err != nil {
		return 0, err
	}
	return p.v.GetInt(key), nil
}

func (p *Parameters) Duration(key string) (time.Duration, error) {
	if err := p.require(key); err != nil {
		return 0, err
	}
	return p.v.GetDuration(key), nil
}

// Config собирает итоговую конфигурацию. Отсутствующая настройка без
// значения по умолчанию прерывает запуск.
func (p *Parameters) Config() (*Config, error) {
	var (
		cfg  Config
		errs []error
		qos  int
	)
	str := func(key string, dst *string) {
		v, err := p.String(key)
		errs = append(errs, err)
		*dst = v
	}
	dur := func(key string, dst *time.Duration) {
		v, err := p.Duration(key)
		errs = append(errs, err)
		*dst = v
	}

	str(KeyNamespace, &cfg.Namespace)
	str(KeyImageTopic, &cfg.ImageTopic)
	str(KeyBoundingBoxTopic, &cfg.BoundingBoxTopic)
	compressed, err := p.Bool(KeyImageIsCompressed)
	errs = append(errs, err)
	cfg.ImageIsCompressed = compressed

	str(KeyMQTTBroker, &cfg.MQTT.Broker)
	str(KeyMQTTClientID, &cfg.MQTT.ClientID)
	qos, err = p.Int(KeyMQTTQoS)
	errs = append(errs, err)
	dur(KeyMQTTTimeout, &cfg.MQTT.ConnectTimeout)

	str(KeyHTTPAddr, &cfg.HTTP.Addr)
	str(KeyTelegramToken, &cfg.Telegram.Token)
	dur(KeyTelegramPush, &cfg.Telegram.PushInterval)
	str(KeyLogMode, &cfg.Log.Mode)
	maxPixels, err := p.Int(KeyVisionMaxPixels)
	errs = append(errs, err)
	cfg.Vision.MaxPixels = maxPixels

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if qos < 0 || qos > 2 {
		return nil, fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2, got %d", ErrConfiguration, qos)
	}
	cfg.MQTT.QoS = byte(qos)
	if cfg.Vision.MaxPixels <= 0 {
		return nil, fmt.Errorf("%w: vision.max_pixels must be positive, got %d", ErrConfiguration, cfg.Vision.MaxPixels)
	}

	return &cfg, nil
}

// Load читает .env (если есть), файл из WHATLOOKING_CONFIG (если задан)
// и переменные окружения.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	p := NewParameters()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := p.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return p.Config()
}
