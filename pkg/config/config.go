package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Source    SourceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	HTTP      HTTPConfig
	Dashboard DashboardConfig
	Ingest    IngestConfig
}

// SourceConfig selects the telemetry provider. Kind is "csv" or
// "postgres". TZOffsetMinutes is the fixed reference offset that all
// source timestamps are converted to before normalization; it must not
// change between reloads.
type SourceConfig struct {
	Kind            string
	CSVPath         string
	TZOffsetMinutes int
}

// Location returns the fixed reference offset as a time.Location.
func (s SourceConfig) Location() *time.Location {
	if s.TZOffsetMinutes == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("REF%+d", s.TZOffsetMinutes), s.TZOffsetMinutes*60)
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicReadings string
	TopicUpdates  string
	NumPartitions int
}

type HTTPConfig struct {
	Port           int
	MaxSubscribers int
}

// DashboardConfig holds the display-policy knobs. The PF thresholds
// split the mean power factor into poor / fair / good bands; the gauge
// headroom and floor shape the cost gauge axis; see internal/view.
type DashboardConfig struct {
	RefreshInterval time.Duration
	DefaultView     string
	HistogramBins   int
	PFFair          float64
	PFGood          float64
	GaugeHeadroom   float64
	GaugeFloor      float64
	StartLive       bool
	SnapshotTTL     time.Duration
}

type IngestConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Source: SourceConfig{
			Kind:            getEnv("SOURCE_KIND", "csv"),
			CSVPath:         getEnv("SOURCE_CSV_PATH", "fridge_enriched.csv"),
			TZOffsetMinutes: getEnvAsInt("SOURCE_TZ_OFFSET_MINUTES", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "fridge_user"),
			Password: getEnv("DB_PASSWORD", "fridge_pass"),
			DBName:   getEnv("DB_NAME", "fridge_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicReadings: getEnv("KAFKA_TOPIC_READINGS", "fridge.readings.raw"),
			TopicUpdates:  getEnv("KAFKA_TOPIC_UPDATES", "fridge.dashboard.updates"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 1),
		},
		HTTP: HTTPConfig{
			Port:           getEnvAsInt("HTTP_PORT", 8050),
			MaxSubscribers: getEnvAsInt("HTTP_MAX_SUBSCRIBERS", 100),
		},
		Dashboard: DashboardConfig{
			RefreshInterval: getEnvAsDuration("DASH_REFRESH_INTERVAL", 10*time.Second),
			DefaultView:     getEnv("DASH_DEFAULT_VIEW", "power"),
			HistogramBins:   getEnvAsInt("DASH_HISTOGRAM_BINS", 40),
			PFFair:          getEnvAsFloat("DASH_PF_FAIR", 0.7),
			PFGood:          getEnvAsFloat("DASH_PF_GOOD", 0.9),
			GaugeHeadroom:   getEnvAsFloat("DASH_GAUGE_HEADROOM", 1.2),
			GaugeFloor:      getEnvAsFloat("DASH_GAUGE_FLOOR", 50),
			StartLive:       getEnvAsBool("DASH_START_LIVE", true),
			SnapshotTTL:     getEnvAsDuration("DASH_SNAPSHOT_TTL", time.Minute),
		},
		Ingest: IngestConfig{
			BatchSize:     getEnvAsInt("INGEST_BATCH_SIZE", 100),
			FlushInterval: getEnvAsDuration("INGEST_FLUSH_INTERVAL", 5*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.Source.Kind {
	case "csv", "postgres":
	default:
		return fmt.Errorf("SOURCE_KIND must be csv or postgres, got %q", c.Source.Kind)
	}
	if c.Dashboard.HistogramBins < 1 {
		return fmt.Errorf("DASH_HISTOGRAM_BINS must be at least 1")
	}
	if c.Dashboard.PFFair <= 0 || c.Dashboard.PFGood >= 1 || c.Dashboard.PFFair >= c.Dashboard.PFGood {
		return fmt.Errorf("PF thresholds must satisfy 0 < fair < good < 1")
	}
	if c.Dashboard.GaugeHeadroom < 1.0 {
		return fmt.Errorf("DASH_GAUGE_HEADROOM must be >= 1.0")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
