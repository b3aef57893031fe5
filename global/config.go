package global

import (
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Config is the whole process configuration, populated from environment
// variables at startup and injected from main.
type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	NatsURL string `mapstructure:"NATS_URL"`

	VapidEmail      string `mapstructure:"VAPID_EMAIL"`
	VapidPublicKey  string `mapstructure:"VAPID_PUBLIC_KEY"`
	VapidPrivateKey string `mapstructure:"VAPID_PRIVATE_KEY"`

	UploadDir string `mapstructure:"UPLOAD_DIR"`
	NodeID    int64  `mapstructure:"NODE_ID"`
}

// Load decodes the process environment into a Config. Missing optional
// values fall back to defaults; DATABASE_URL and JWT_SECRET are required.
func Load() (*Config, error) {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}

	cfg := &Config{
		Port:       "3000",
		RedisAddr:  "127.0.0.1:6379",
		NatsURL:    "nats://127.0.0.1:4222",
		UploadDir:  "uploads",
		NodeID:     1,
		VapidEmail: "mailto:admin@chaters.com",
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true, // env values are strings; "0"/"1" etc. decode into ints
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(env); err != nil {
		return nil, errors.Wrap(err, "decode env config")
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}
