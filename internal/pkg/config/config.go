package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// GazetteerMissPolicy controls what the suburb normalizer returns when a
// value matches nothing in the gazetteer. The two legacy scripts disagreed
// on this, so both behaviors are kept reachable.
type GazetteerMissPolicy string

const (
	// MissKeepCleaned returns the locally normalized string unmodified
	MissKeepCleaned GazetteerMissPolicy = "keep_cleaned"
	// MissDiscard returns an empty string
	MissDiscard GazetteerMissPolicy = "discard"
)

type Config struct {
	// Environment
	Environment string `mapstructure:"ENV"`

	// Pipeline Configuration
	InputPath          string              `mapstructure:"INPUT_PATH"`
	OutputPath         string              `mapstructure:"OUTPUT_PATH"`
	RefDataDir         string              `mapstructure:"REF_DATA_DIR"`
	GazetteerURL       string              `mapstructure:"GAZETTEER_URL"`
	GazetteerFile      string              `mapstructure:"GAZETTEER_FILE"`
	GazetteerMissMode  GazetteerMissPolicy `mapstructure:"GAZETTEER_MISS_POLICY"`
	WorkerConcurrency  int                 `mapstructure:"WORKER_CONCURRENCY"`
	ListingTimeoutSecs int                 `mapstructure:"LISTING_TIMEOUT_SECS"`
	FetchMaxAttempts   int                 `mapstructure:"FETCH_MAX_ATTEMPTS"`

	// Database Configuration
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBLogLevel string `mapstructure:"DB_LOG_LEVEL"`

	// Redis Configuration (reference-entity cache + task queue)
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	CacheEnabled  bool   `mapstructure:"CACHE_ENABLED"`

	// Queue Configuration (distributed import mode)
	QueueConcurrency int `mapstructure:"QUEUE_CONCURRENCY"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	viper.SetDefault("ENV", "development")

	// Pipeline defaults
	viper.SetDefault("INPUT_PATH", "listings_export.csv")
	viper.SetDefault("OUTPUT_PATH", "listings_normalized.csv")
	viper.SetDefault("REF_DATA_DIR", "refdata")
	viper.SetDefault("GAZETTEER_URL", "https://download.geonames.org/export/dump/AU.zip")
	viper.SetDefault("GAZETTEER_FILE", "AU.txt")
	viper.SetDefault("GAZETTEER_MISS_POLICY", string(MissKeepCleaned))
	viper.SetDefault("WORKER_CONCURRENCY", 8)
	viper.SetDefault("LISTING_TIMEOUT_SECS", 30)
	viper.SetDefault("FETCH_MAX_ATTEMPTS", 3)

	// Database defaults
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_NAME", "listings")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_LOG_LEVEL", "silent")

	// Redis defaults
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("QUEUE_CONCURRENCY", 10)

	viper.AutomaticEnv()

	config := &Config{
		Environment:        viper.GetString("ENV"),
		InputPath:          viper.GetString("INPUT_PATH"),
		OutputPath:         viper.GetString("OUTPUT_PATH"),
		RefDataDir:         viper.GetString("REF_DATA_DIR"),
		GazetteerURL:       viper.GetString("GAZETTEER_URL"),
		GazetteerFile:      viper.GetString("GAZETTEER_FILE"),
		GazetteerMissMode:  GazetteerMissPolicy(viper.GetString("GAZETTEER_MISS_POLICY")),
		WorkerConcurrency:  viper.GetInt("WORKER_CONCURRENCY"),
		ListingTimeoutSecs: viper.GetInt("LISTING_TIMEOUT_SECS"),
		FetchMaxAttempts:   viper.GetInt("FETCH_MAX_ATTEMPTS"),

		DBHost:     viper.GetString("DB_HOST"),
		DBPort:     viper.GetInt("DB_PORT"),
		DBUser:     viper.GetString("DB_USER"),
		DBPassword: viper.GetString("DB_PASSWORD"),
		DBName:     viper.GetString("DB_NAME"),
		DBSSLMode:  viper.GetString("DB_SSLMODE"),
		DBLogLevel: viper.GetString("DB_LOG_LEVEL"),

		RedisHost:     viper.GetString("REDIS_HOST"),
		RedisPort:     viper.GetInt("REDIS_PORT"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),
		RedisDB:       viper.GetInt("REDIS_DB"),
		CacheEnabled:  viper.GetBool("CACHE_ENABLED"),

		QueueConcurrency: viper.GetInt("QUEUE_CONCURRENCY"),
	}

	switch config.GazetteerMissMode {
	case MissKeepCleaned, MissDiscard:
	default:
		return nil, fmt.Errorf("GAZETTEER_MISS_POLICY must be %q or %q, got %q",
			MissKeepCleaned, MissDiscard, config.GazetteerMissMode)
	}

	if config.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}

	return config, nil
}

// GetDatabaseDSN constructs the PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// GetRedisAddr constructs the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
