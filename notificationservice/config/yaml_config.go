package config

import (
	"log/slog"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlGatewayConfig struct {
	SenderID          string `yaml:"sender_id"`
	ContentProviderID string `yaml:"content_provider_id"`
	Environment       string `yaml:"environment"`
	DeliveryMethod    string `yaml:"delivery_method"`
	PushIDPrefix      string `yaml:"push_id_prefix"`
	RequestTimeout    string `yaml:"request_timeout"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
// The gateway password is deliberately absent: it only comes from the environment.
type YamlConfig struct {
	ProjectID              string            `yaml:"project_id"`
	ListenAddr             string            `yaml:"listen_addr"`
	TopicID                string            `yaml:"topic_id"`
	SubscriptionID         string            `yaml:"subscription_id"`
	SubscriptionDLQTopicID string            `yaml:"subscription_dlq_topic_id"`
	CorsConfig             YamlCorsConfig    `yaml:"cors"`
	RedisConfig            YamlRedisConfig   `yaml:"redis"`
	GatewayConfig          YamlGatewayConfig `yaml:"gateway"`
	NumPipelineWorkers     int               `yaml:"num_pipeline_workers"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
// Durations that fail to parse are left at zero and defaulted during validation.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:      baseCfg.ProjectID,
		ListenAddr:     baseCfg.ListenAddr,
		TopicID:        baseCfg.TopicID,
		SubscriptionID: baseCfg.SubscriptionID,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
		Gateway: GatewayConfig{
			SenderID:          baseCfg.GatewayConfig.SenderID,
			ContentProviderID: baseCfg.GatewayConfig.ContentProviderID,
			Environment:       baseCfg.GatewayConfig.Environment,
			DeliveryMethod:    baseCfg.GatewayConfig.DeliveryMethod,
			PushIDPrefix:      baseCfg.GatewayConfig.PushIDPrefix,
		},
		SubscriptionDLQTopicID: baseCfg.SubscriptionDLQTopicID,
		NumPipelineWorkers:     baseCfg.NumPipelineWorkers,
	}

	if raw := baseCfg.GatewayConfig.RequestTimeout; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.Gateway.RequestTimeout = d
		} else {
			logger.Warn("Ignoring invalid gateway request_timeout", "value", raw, "err", err)
		}
	}

	if cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"subscription_id", cfg.SubscriptionID,
		"gateway_environment", cfg.Gateway.Environment,
	)

	return cfg, nil
}
