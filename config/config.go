// Package config loads the service configuration from the environment and an
// optional config file.
package config

import "time"

// Storage backends accepted by StorageConfig.Type.
const (
	StorageMongo      = "mongodb"
	StorageMemory     = "memory"
	StorageFilesystem = "filesystem"
	StorageSQLite     = "sqlite"
	StoragePostgres   = "postgres"
	StorageS3         = "s3"
	StorageDynamo     = "dynamodb"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr" validate:"required,hostname_port"`
	LogLevel          string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// StorageConfig selects the persistence backend. Only the settings of the
// selected backend are required.
type StorageConfig struct {
	Type           string `mapstructure:"type" validate:"required,oneof=mongodb memory filesystem sqlite postgres s3 dynamodb"`
	MongoURI       string `mapstructure:"mongo_uri" validate:"required_if=Type mongodb"`
	MongoDatabase  string `mapstructure:"mongo_database" validate:"required_if=Type mongodb"`
	LocalPath      string `mapstructure:"local_path" validate:"required_if=Type filesystem"`
	DataSourceName string `mapstructure:"data_source_name" validate:"required_if=Type sqlite"`
	PostgresDSN    string `mapstructure:"postgres_dsn" validate:"required_if=Type postgres"`
	S3Bucket       string `mapstructure:"s3_bucket" validate:"required_if=Type s3"`
	DynamoTable    string `mapstructure:"dynamo_table" validate:"required_if=Type dynamodb"`
	DynamoEndpoint string `mapstructure:"dynamo_endpoint" validate:"omitempty,url"`
}
