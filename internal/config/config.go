package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	ObjectStore ObjectStoreConfig
	Grant       GrantConfig
	Worker      WorkerConfig
	Logging     LoggingConfig
	EventBus    EventBusConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

type ObjectStoreConfig struct {
	// Backend selects "memory" or "s3".
	Backend        string
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	Insecure       bool
	ForcePathStyle bool
	// ListenNotifications enables the bucket-notification listener on the
	// s3 backend. Deployments that deliver events through the webhook
	// route leave this off.
	ListenNotifications bool
}

type GrantConfig struct {
	// URLExpiry is the validity window of the presigned upload URL.
	URLExpiry time.Duration
	// TransactionTTL is how long a transaction may stay unresolved before
	// the store sweeps it.
	TransactionTTL time.Duration
	SweepInterval  time.Duration
}

type WorkerConfig struct {
	PoolSize   int
	MaxRetries int
}

type LoggingConfig struct {
	Level string
}

type EventBusConfig struct {
	ChannelBufferSize int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		ObjectStore: ObjectStoreConfig{
			Backend:             getEnv("OBJECT_STORE_BACKEND", "memory"),
			Endpoint:            getEnv("OBJECT_STORE_ENDPOINT", ""),
			Region:              getEnv("OBJECT_STORE_REGION", "us-east-1"),
			Bucket:              getEnv("OBJECT_STORE_BUCKET", "invoice-uploads"),
			AccessKey:           getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey:           getEnv("OBJECT_STORE_SECRET_KEY", ""),
			Insecure:            getBoolEnv("OBJECT_STORE_INSECURE", false),
			ForcePathStyle:      getBoolEnv("OBJECT_STORE_FORCE_PATH_STYLE", false),
			ListenNotifications: getBoolEnv("OBJECT_STORE_LISTEN_NOTIFICATIONS", false),
		},
		Grant: GrantConfig{
			URLExpiry:      getDurationEnv("GRANT_URL_EXPIRY", 5*time.Minute),
			TransactionTTL: getDurationEnv("TRANSACTION_TTL", 2*time.Minute),
			SweepInterval:  getDurationEnv("TRANSACTION_SWEEP_INTERVAL", 1*time.Second),
		},
		Worker: WorkerConfig{
			PoolSize:   getIntEnv("WORKER_POOL_SIZE", 10),
			MaxRetries: getIntEnv("MAX_RETRIES", 5),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		EventBus: EventBusConfig{
			ChannelBufferSize: getIntEnv("EVENT_CHANNEL_BUFFER_SIZE", 1000),
		},
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func getBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}
