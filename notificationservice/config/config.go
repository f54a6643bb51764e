package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-pap-service/pkg/pap"
)

const defaultRequestTimeout = 30 * time.Second

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// GatewayConfig holds the PAP gateway credentials and push defaults.
type GatewayConfig struct {
	SenderID          string
	Password          string
	ContentProviderID string
	// Environment is "production" or "evaluation".
	Environment    string
	DeliveryMethod string
	PushIDPrefix   string
	RequestTimeout time.Duration
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID              string
	ListenAddr             string
	SubscriptionID         string
	SubscriptionDLQTopicID string
	NumPipelineWorkers     int

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
	Gateway    GatewayConfig

	TopicID              string
	PubsubConsumerConfig *messagepipeline.GooglePubsubConsumerConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	// 1. Apply Environment Overrides
	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_ID", "source", "env")
		cfg.SubscriptionID = val
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(val)
	}
	if val := os.Getenv("SUBSCRIPTION_DLQ_TOPIC_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_DLQ_TOPIC_ID", "source", "env")
		cfg.SubscriptionDLQTopicID = val
	}
	if val := os.Getenv("NUM_PIPELINE_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			logger.Debug("Overriding config value", "key", "NUM_PIPELINE_WORKERS", "source", "env")
			cfg.NumPipelineWorkers = workers
		}
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// Gateway Overrides
	if val := os.Getenv("PAP_SENDER_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PAP_SENDER_ID", "source", "env")
		cfg.Gateway.SenderID = val
	}
	if val := os.Getenv("PAP_PASSWORD"); val != "" {
		// Never log the value.
		logger.Debug("Overriding config value", "key", "PAP_PASSWORD", "source", "env")
		cfg.Gateway.Password = val
	}
	if val := os.Getenv("PAP_CPID"); val != "" {
		logger.Debug("Overriding config value", "key", "PAP_CPID", "source", "env")
		cfg.Gateway.ContentProviderID = val
	}
	if val := os.Getenv("PAP_ENVIRONMENT"); val != "" {
		logger.Debug("Overriding config value", "key", "PAP_ENVIRONMENT", "source", "env")
		cfg.Gateway.Environment = val
	}
	if val := os.Getenv("PAP_DELIVERY_METHOD"); val != "" {
		logger.Debug("Overriding config value", "key", "PAP_DELIVERY_METHOD", "source", "env")
		cfg.Gateway.DeliveryMethod = val
	}
	if val := os.Getenv("PAP_PUSH_ID_PREFIX"); val != "" {
		logger.Debug("Overriding config value", "key", "PAP_PUSH_ID_PREFIX", "source", "env")
		cfg.Gateway.PushIDPrefix = val
	}
	if val := os.Getenv("PAP_REQUEST_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("PAP_REQUEST_TIMEOUT is not a duration: %w", err)
		}
		logger.Debug("Overriding config value", "key", "PAP_REQUEST_TIMEOUT", "source", "env")
		cfg.Gateway.RequestTimeout = d
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		rawOrigins := strings.Split(corsOrigins, ",")
		var cleanOrigins []string
		for _, o := range rawOrigins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// 2. Final Validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.SubscriptionID == "" {
		return nil, fmt.Errorf("subscription_id is required (set via YAML or SUBSCRIPTION_ID env var)")
	}
	if err := validateGateway(&cfg.Gateway); err != nil {
		return nil, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.NumPipelineWorkers <= 0 {
		cfg.NumPipelineWorkers = 1
	}

	if cfg.PubsubConsumerConfig == nil && cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}

func validateGateway(g *GatewayConfig) error {
	if g.SenderID == "" {
		return fmt.Errorf("gateway.sender_id is required (set via YAML or PAP_SENDER_ID env var)")
	}
	if g.Password == "" {
		return fmt.Errorf("gateway password is required (set via PAP_PASSWORD env var)")
	}
	if g.ContentProviderID == "" {
		return fmt.Errorf("gateway.content_provider_id is required (set via YAML or PAP_CPID env var)")
	}
	if _, err := pap.ParseEnvironment(g.Environment); err != nil {
		return fmt.Errorf("gateway.environment: %w", err)
	}
	if g.DeliveryMethod == "" {
		g.DeliveryMethod = pap.DeliveryNotSpecified
	}
	if !pap.IsDeliveryMethod(g.DeliveryMethod) {
		return fmt.Errorf("gateway.delivery_method must be one of %s", strings.Join(pap.DeliveryMethods(), ", "))
	}
	if g.RequestTimeout <= 0 {
		g.RequestTimeout = defaultRequestTimeout
	}
	return nil
}
