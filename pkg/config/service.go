package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/dashboard"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/pathing"
)

// LoadEnv reads an optional .env file. Missing is fine.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
}

func LoadInterpreterAPIConfig() (*InterpreterAPIConfig, error) {
	cfg := &InterpreterAPIConfig{
		SerialDevice:            "/dev/ttyUSB0",
		Baudrate:                115200,
		ListenAddress:           "0.0.0.0",
		ListenPort:              9039,
		SolarInverterIp:         "192.168.200.1",
		SolarInverterModbusPort: 502,
		WlanConnectionId:        "preconfigured", // Check with `nmcli device status`
	}
	if err := loadOrCreate("interpreter_api.toml", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadMeterCollectorConfig() (*MeterCollectorConfig, error) {
	cfg := &MeterCollectorConfig{
		InterpreterAPIHost:       "localhost:9039",
		TLSEnabled:               false,
		Timezone:                 "Local",
		AggregateIntervalMinutes: 60,
		Daily:                    dashboard.DefaultEngineConfig().Daily,
		MQTT: MQTTConfig{
			ClientID:    "esm-meter-collector",
			TopicPrefix: "homeassistant/sensor/esm_energy_flow",
		},
	}
	if err := loadOrCreate("meter_collector.toml", cfg); err != nil {
		return nil, err
	}
	if pw := os.Getenv("ESM_MQTT_PASSWORD"); pw != "" {
		cfg.MQTT.Password = pw
	}
	return cfg, nil
}

func LoadDashboardAPIConfig() (*DashboardAPIConfig, error) {
	cfg := &DashboardAPIConfig{
		InterpreterAPIHost:     "localhost:9039",
		ListenAddress:          "0.0.0.0",
		ListenPort:             9040,
		Timezone:               "Local",
		RefreshIntervalSeconds: 60,
		Engine:                 dashboard.DefaultEngineConfig(),
	}
	if err := loadOrCreate("dashboard_api.toml", cfg); err != nil {
		return nil, err
	}
	if pw := os.Getenv("ESM_REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	cfg.Engine.Capacity = cfg.Engine.Capacity.WithDefaults()
	return cfg, nil
}

// RefreshInterval never returns less than a second.
func (c *DashboardAPIConfig) RefreshInterval() time.Duration {
	return max(time.Second, time.Duration(c.RefreshIntervalSeconds)*time.Second)
}

// Location resolves a configured timezone name.
func Location(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// loadOrCreate decodes the named file over cfg, which holds the defaults.
// When the file does not exist it is created from those defaults.
func loadOrCreate(name string, cfg any) error {
	configPath := filepath.Join(pathing.GetConfigDir(), name)

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", configPath, err)
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return fmt.Errorf("writing %s: %w", configPath, err)
		}
		log.Printf("Created default config at %s", configPath)
		return nil
	}

	// Load existing config
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return fmt.Errorf("decoding %s: %w", configPath, err)
	}
	return nil
}
