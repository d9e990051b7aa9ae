package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config carries every tunable of the gateway. Values come from environment
// variables, optionally seeded from a .env file in the working directory.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`

	DatabaseDSN string `mapstructure:"DB_DSN"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	InternalToken string `mapstructure:"INTERNAL_TOKEN"`

	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3Bucket          string `mapstructure:"S3_BUCKET"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	viper.AddConfigPath("./")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// the .env file is optional; plain environment variables win anyway
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	viper.SetDefault("SERVER_PORT", "8083")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("AMQP_EXCHANGE", "exwonder.events")
	viper.SetDefault("S3_REGION", "us-east-1")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}

	return &cfg, nil
}
