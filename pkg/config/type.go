package config

import (
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/dashboard"
)

type InterpreterAPIConfig struct {
	SerialDevice            string `toml:"serial_device"`
	Baudrate                uint   `toml:"baudrate"`
	ListenAddress           string `toml:"listen_address"`
	ListenPort              int    `toml:"listen_port"`
	SolarInverterIp         string `toml:"solar_inverter_ip"`
	SolarInverterModbusPort int    `toml:"solar_inverter_modbus_port"`
	// Should be named `preconfigured`
	// Check with `nmcli device status`
	WlanConnectionId string `toml:"wlan_connection_id"`
}

type MeterCollectorConfig struct {
	InterpreterAPIHost string `toml:"interpreter_api_host"`
	TLSEnabled         bool   `toml:"tls_enabled"`
	// Local timezone used to cut days, e.g. "Europe/Brussels".
	Timezone string `toml:"timezone"`
	// Minutes between daily aggregation runs
	AggregateIntervalMinutes int                `toml:"aggregate_interval_minutes"`
	Daily                    aggregator.Options `toml:"daily"`
	MQTT                     MQTTConfig         `toml:"mqtt"`
}

type DashboardAPIConfig struct {
	InterpreterAPIHost     string                 `toml:"interpreter_api_host"`
	TLSEnabled             bool                   `toml:"tls_enabled"`
	ListenAddress          string                 `toml:"listen_address"`
	ListenPort             int                    `toml:"listen_port"`
	Timezone               string                 `toml:"timezone"`
	RefreshIntervalSeconds int                    `toml:"refresh_interval_seconds"`
	Redis                  RedisConfig            `toml:"redis"`
	Engine                 dashboard.EngineConfig `toml:"engine"`
}

// Empty broker disables MQTT publishing.
type MQTTConfig struct {
	Broker      string `toml:"broker"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
}

// Empty address disables the cache.
type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}
