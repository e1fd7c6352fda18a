package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	logsConfig "github.com/zerok-ai/zk-utils-go/logs/config"
)

type ServerConfig struct {
	Port string `yaml:"port" env-default:"8147" env-description:"Console feed HTTP port"`
}

type GatewayConfig struct {
	BaseUrl               string `yaml:"baseUrl" env:"ZK_GATEWAY_URL" env-description:"Governance gateway base URL"`
	AuthToken             string `yaml:"authToken" env:"ZK_GATEWAY_TOKEN" env-description:"Governance gateway auth token"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds" env-default:"10"`
	RetryAttempts         int    `yaml:"retryAttempts" env-default:"3"`
	RetryDelayMs          int    `yaml:"retryDelayMs" env-default:"500"`
}

type StreamConfig struct {
	Enabled                  bool `yaml:"enabled" env:"ZK_STREAM_ENABLED" env-default:"true"`
	ReconnectDelayMs         int  `yaml:"reconnectDelayMs" env-default:"3000"`
	MaxBufferedEvents        int  `yaml:"maxBufferedEvents" env-default:"100"`
	SubscriberRefreshSeconds int  `yaml:"subscriberRefreshSeconds" env-default:"30"`
	DownstreamBufferSize     int  `yaml:"downstreamBufferSize" env-default:"16"`
}

type FeedConfig struct {
	SnapshotLimit       int `yaml:"snapshotLimit" env-default:"50"`
	DisplayLimit        int `yaml:"displayLimit" env-default:"30"`
	HealthyPollSeconds  int `yaml:"healthyPollSeconds" env-default:"60"`
	DegradedPollSeconds int `yaml:"degradedPollSeconds" env-default:"30"`
}

type TracesConfig struct {
	DecisionLinkWindowMs int `yaml:"decisionLinkWindowMs" env-default:"5000"`
}

type ConsoleFeedConfig struct {
	Server  ServerConfig          `yaml:"server"`
	Gateway GatewayConfig         `yaml:"gateway"`
	Stream  StreamConfig          `yaml:"stream"`
	Feed    FeedConfig            `yaml:"feed"`
	Traces  TracesConfig          `yaml:"traces"`
	Logs    logsConfig.LogsConfig `yaml:"logs"`
}

func CreateConfig(configPath string) (*ConsoleFeedConfig, error) {
	var cfg ConsoleFeedConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", configPath, err)
	}
	if len(cfg.Gateway.BaseUrl) == 0 {
		return nil, fmt.Errorf("gateway baseUrl is required")
	}
	if len(cfg.Logs.Level) == 0 {
		cfg.Logs.Level = "INFO"
	}
	return &cfg, nil
}
