package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"server.addr":                "LISTEN_ADDR",
	"server.log_level":           "LOG_LEVEL",
	"server.read_header_timeout": "READ_HEADER_TIMEOUT",
	"server.read_timeout":        "READ_TIMEOUT",
	"server.write_timeout":       "WRITE_TIMEOUT",
	"server.idle_timeout":        "IDLE_TIMEOUT",
	"server.shutdown_timeout":    "SHUTDOWN_TIMEOUT",
	"storage.type":               "STORAGE_TYPE",
	"storage.mongo_uri":          "MONGODB_URI",
	"storage.mongo_database":     "MONGODB_DATABASE",
	"storage.local_path":         "LOCAL_STORAGE_PATH",
	"storage.data_source_name":   "DATA_SOURCE_NAME",
	"storage.postgres_dsn":       "POSTGRES_DSN",
	"storage.s3_bucket":          "S3_BUCKET_NAME",
	"storage.dynamo_table":       "DYNAMODB_TABLE",
	"storage.dynamo_endpoint":    "DYNAMODB_ENDPOINT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("storage.type", StorageMongo)
	v.SetDefault("storage.mongo_uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("storage.mongo_database", "test")
	v.SetDefault("storage.local_path", "./data")
	v.SetDefault("storage.data_source_name", "stores.db")
	v.SetDefault("storage.dynamo_table", "Stores")
}

// Load reads configuration from defaults, the file named by CONFIG_FILE if
// set, and the environment, in increasing order of precedence, then
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
