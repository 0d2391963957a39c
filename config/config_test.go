package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParameters_Defaults(t *testing.T) {
	cfg, err := NewParameters().Config()
	require.NoError(t, err)

	require.Equal(t, "raspicam_compressed", cfg.ImageTopic)
	require.True(t, cfg.ImageIsCompressed)
	require.Equal(t, "found_faces", cfg.BoundingBoxTopic)
	require.Equal(t, "raspicam", cfg.Namespace)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	require.Contains(t, cfg.MQTT.ClientID, "whatlooking-")
	require.Equal(t, byte(0), cfg.MQTT.QoS)
	require.Equal(t, 5*time.Second, cfg.Telegram.PushInterval)
	require.Empty(t, cfg.Telegram.Token)
	require.Equal(t, 8192*4096, cfg.Vision.MaxPixels)
}

func TestParameters_EnvOverrides(t *testing.T) {
	t.Setenv("IMAGE_TOPIC", "raspicam_raw")
	t.Setenv("IMAGE_IS_COMPRESSED", "false")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_QOS", "1")

	cfg, err := NewParameters().Config()
	require.NoError(t, err)
	require.Equal(t, "raspicam_raw", cfg.ImageTopic)
	require.False(t, cfg.ImageIsCompressed)
	require.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	require.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestParameters_UnknownKey(t *testing.T) {
	p := NewParameters()
	require.False(t, p.Has("camera.fps"))

	_, err := p.String("camera.fps")
	require.ErrorIs(t, err, ErrConfiguration)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "camera.fps", cfgErr.Key)
}

func TestParameters_InvalidQoS(t *testing.T) {
	p := NewParameters()
	p.Set(KeyMQTTQoS, 3)

	_, err := p.Config()
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestParameters_MaxPixels(t *testing.T) {
	t.Setenv("VISION_MAX_PIXELS", "307200")
	cfg, err := NewParameters().Config()
	require.NoError(t, err)
	require.Equal(t, 307200, cfg.Vision.MaxPixels)

	p := NewParameters()
	p.Set(KeyVisionMaxPixels, 0)
	_, err = p.Config()
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestParameters_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "image_topic: camera/jpeg\nbounding_box_topic: detector/boxes\nmqtt:\n  broker: tcp://10.0.0.2:1883\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewParameters()
	require.NoError(t, p.ReadFile(path))

	cfg, err := p.Config()
	require.NoError(t, err)
	require.Equal(t, "camera/jpeg", cfg.ImageTopic)
	require.Equal(t, "detector/boxes", cfg.BoundingBoxTopic)
	require.Equal(t, "tcp://10.0.0.2:1883", cfg.MQTT.Broker)
	require.True(t, cfg.ImageIsCompressed)
}

func TestParameters_ReadFileMissing(t *testing.T) {
	err := NewParameters().ReadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfig_Topic(t *testing.T) {
	cfg := &Config{Namespace: "raspicam"}
	require.Equal(t, "raspicam/found_faces", cfg.Topic("found_faces"))
	require.Equal(t, "found_faces", cfg.Topic("/found_faces"))

	cfg.Namespace = ""
	require.Equal(t, "found_faces", cfg.Topic("found_faces"))
}
