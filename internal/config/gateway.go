package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GatewayConfig is the connection material for one payment gateway.
type GatewayConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"baseUrl"`
	APIKey         string `mapstructure:"apiKey"`
	MerchantID     string `mapstructure:"merchantId"`
	CallbackSecret string `mapstructure:"callbackSecret"`
}

// GatewaysConfig holds the settings for every supported gateway.
type GatewaysConfig struct {
	Cardlink GatewayConfig `mapstructure:"cardlink"`
	Payhop   GatewayConfig `mapstructure:"payhop"`
}

func DefaultGatewaysConfig() GatewaysConfig {
	return GatewaysConfig{
		Cardlink: GatewayConfig{
			Enabled:        true,
			BaseURL:        "https://api.cardlink.example",
			APIKey:         "cl_test_key",
			CallbackSecret: "cl_test_secret",
		},
		Payhop: GatewayConfig{
			Enabled:        true,
			BaseURL:        "https://api.payhop.example",
			MerchantID:     "ph_test_merchant",
			CallbackSecret: "ph_test_secret",
		},
	}
}

// GatewaysConfigHolder exposes the current gateway settings and reloads them
// when the settings file changes on disk.
type GatewaysConfigHolder struct {
	current atomic.Value // holds GatewaysConfig
}

func NewGatewaysConfigHolder() (*GatewaysConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("gateways")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/hirelink/config") // Volume-mounted config
	v.AddConfigPath("/etc/hirelink")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("HIRELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultGatewaysConfig()
		v.SetDefault("gateways.cardlink", defaults.Cardlink)
		v.SetDefault("gateways.payhop", defaults.Payhop)
	}

	var cfg GatewaysConfig
	if err := v.UnmarshalKey("gateways", &cfg); err != nil {
		return nil, err
	}
	if err := validateGatewaysConfig(cfg); err != nil {
		return nil, err
	}

	holder := &GatewaysConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated GatewaysConfig
		if err := v.UnmarshalKey("gateways", &updated); err != nil {
			log.Printf("[gateway-config] reload failed: %v", err)
			return
		}
		if err := validateGatewaysConfig(updated); err != nil {
			log.Printf("[gateway-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[gateway-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *GatewaysConfigHolder) Get() GatewaysConfig {
	return h.current.Load().(GatewaysConfig)
}

func validateGatewaysConfig(cfg GatewaysConfig) error {
	if cfg.Cardlink.Enabled && strings.TrimSpace(cfg.Cardlink.BaseURL) == "" {
		return errors.New("gateways.cardlink.baseUrl cannot be empty")
	}
	if cfg.Payhop.Enabled && strings.TrimSpace(cfg.Payhop.BaseURL) == "" {
		return errors.New("gateways.payhop.baseUrl cannot be empty")
	}
	return nil
}
