package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	MaxRequestsPerMin int `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB     int    `mapstructure:"REDIS_SESSION_DB"`
	RedisNotifyQueueDB int    `mapstructure:"REDIS_NOTIFY_QUEUE_DB"`

	// Scheduling backend (appointment types, practitioners, availability,
	// appointment creation) consumed over HTTP.
	SchedulingAPIBaseURL   string `mapstructure:"SCHEDULING_API_BASE_URL"`
	SchedulingAPITimeoutMS int    `mapstructure:"SCHEDULING_API_TIMEOUT_MS"`

	// Clinic identity and timezone. Every lead-time and deadline comparison
	// runs in the clinic's timezone, never the caller's.
	ClinicID       string `mapstructure:"CLINIC_ID"`
	ClinicTimezone string `mapstructure:"CLINIC_TIMEZONE"`

	// Flow policy for this deployment.
	FlowVariant       string `mapstructure:"FLOW_VARIANT"` // "type-first" or "patient-first"
	AllowRetreat      bool   `mapstructure:"ALLOW_RETREAT"`
	MultiSlotEnabled  bool   `mapstructure:"MULTI_SLOT_ENABLED"`
	SessionTTLMinutes int    `mapstructure:"SESSION_TTL_MINUTES"`
}

var AppConfig Config

// clinicLocation is resolved once from ClinicTimezone by LoadConfig.
var clinicLocation *time.Location

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_NOTIFY_QUEUE_DB", 1)
	viper.SetDefault("SCHEDULING_API_BASE_URL", "http://localhost:9090")
	viper.SetDefault("SCHEDULING_API_TIMEOUT_MS", 10000)
	viper.SetDefault("CLINIC_ID", "")
	viper.SetDefault("CLINIC_TIMEZONE", "Asia/Taipei")
	viper.SetDefault("FLOW_VARIANT", "type-first")
	viper.SetDefault("ALLOW_RETREAT", true)
	viper.SetDefault("MULTI_SLOT_ENABLED", true)
	viper.SetDefault("SESSION_TTL_MINUTES", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	loc, err := time.LoadLocation(AppConfig.ClinicTimezone)
	if err != nil {
		log.Fatalf("Invalid CLINIC_TIMEZONE %q: %v", AppConfig.ClinicTimezone, err)
	}
	clinicLocation = loc
}

// ClinicLocation returns the clinic's timezone.
func ClinicLocation() *time.Location {
	if clinicLocation == nil {
		clinicLocation = time.UTC
	}
	return clinicLocation
}

// SessionTTL returns how long an idle booking session is kept alive.
func SessionTTL() time.Duration {
	minutes := AppConfig.SessionTTLMinutes
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
