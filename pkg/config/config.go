package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Geo       GeoConfig       `mapstructure:"geo"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Behavior  BehaviorConfig  `mapstructure:"behavior"`
	Bypass    BypassConfig    `mapstructure:"bypass"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	AdminPort   int    `mapstructure:"admin_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type GeoConfig struct {
	ProviderURL            string `mapstructure:"provider_url"`
	ProviderAPIKey         string `mapstructure:"provider_api_key"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	BreakerMaxFailures     int    `mapstructure:"breaker_max_failures"`
	BreakerCooldownSeconds int    `mapstructure:"breaker_cooldown_seconds"`
}

type CaptchaConfig struct {
	VerifyURL              string `mapstructure:"verify_url"`
	Secret                 string `mapstructure:"secret"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	ScoreThreshold         int    `mapstructure:"score_threshold"`
	RateThreshold          int    `mapstructure:"rate_threshold"`
	BreakerMaxFailures     int    `mapstructure:"breaker_max_failures"`
	BreakerCooldownSeconds int    `mapstructure:"breaker_cooldown_seconds"`
}

type RateLimitConfig struct {
	FailOpenRemaining int `mapstructure:"fail_open_remaining"`
}

type BehaviorConfig struct {
	MaxWindowEvents int `mapstructure:"max_window_events"`
	BurstThreshold  int `mapstructure:"burst_threshold"`
	BurstWindowSec  int `mapstructure:"burst_window_seconds"`
}

type BypassConfig struct {
	MaxIPsPerIdentifier int `mapstructure:"max_ips_per_identifier"`
	MaxUserAgents       int `mapstructure:"max_user_agents"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load config file: %w", err)
	}
	setDefaultValues()
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return err
		}
	}
	return viper.Unmarshal(out)
}

func setDefaultValues() {
	if globalConfig.Server.Port == 0 {
		globalConfig.Server.Port = 8080
	}
	if globalConfig.Server.AdminPort == 0 {
		globalConfig.Server.AdminPort = 8081
	}
	if globalConfig.Server.MetricsPort == 0 {
		globalConfig.Server.MetricsPort = 9090
	}
	if globalConfig.Redis.Host == "" {
		globalConfig.Redis.Host = "localhost"
	}
	if globalConfig.Redis.Port == 0 {
		globalConfig.Redis.Port = 6379
	}
	if globalConfig.Geo.TimeoutSeconds == 0 {
		globalConfig.Geo.TimeoutSeconds = 3
	}
	if globalConfig.Geo.BreakerMaxFailures == 0 {
		globalConfig.Geo.BreakerMaxFailures = 5
	}
	if globalConfig.Geo.BreakerCooldownSeconds == 0 {
		globalConfig.Geo.BreakerCooldownSeconds = 30
	}
	if globalConfig.Captcha.TimeoutSeconds == 0 {
		globalConfig.Captcha.TimeoutSeconds = 3
	}
	if globalConfig.Captcha.BreakerMaxFailures == 0 {
		globalConfig.Captcha.BreakerMaxFailures = 5
	}
	if globalConfig.Captcha.BreakerCooldownSeconds == 0 {
		globalConfig.Captcha.BreakerCooldownSeconds = 30
	}
	if globalConfig.Captcha.ScoreThreshold == 0 {
		globalConfig.Captcha.ScoreThreshold = 60
	}
	if globalConfig.Captcha.RateThreshold == 0 {
		globalConfig.Captcha.RateThreshold = 30
	}
	if globalConfig.RateLimit.FailOpenRemaining == 0 {
		globalConfig.RateLimit.FailOpenRemaining = 1
	}
	if globalConfig.Behavior.MaxWindowEvents == 0 {
		globalConfig.Behavior.MaxWindowEvents = 1000
	}
	if globalConfig.Behavior.BurstThreshold == 0 {
		globalConfig.Behavior.BurstThreshold = 30
	}
	if globalConfig.Behavior.BurstWindowSec == 0 {
		globalConfig.Behavior.BurstWindowSec = 30
	}
	if globalConfig.Bypass.MaxIPsPerIdentifier == 0 {
		globalConfig.Bypass.MaxIPsPerIdentifier = 5
	}
	if globalConfig.Bypass.MaxUserAgents == 0 {
		globalConfig.Bypass.MaxUserAgents = 10
	}
}

func GetConfig() *Config {
	return &globalConfig
}
