package mqttpublish

// Message is one outgoing MQTT publish.
type Message struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

type haDeviceConfig struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

type haEntityConfig struct {
	Name             string         `json:"name,omitempty"`
	DeviceClass      string         `json:"device_class,omitempty"`
	StateTopic       string         `json:"state_topic"`
	UnitOfMeasure    string         `json:"unit_of_measurement,omitempty"`
	ValueTemplate    string         `json:"value_template"`
	UniqueId         string         `json:"unique_id"`
	StateClass       string         `json:"state_class,omitempty"`
	DisplayPrecision int            `json:"suggested_display_precision,omitempty"`
	Icon             string         `json:"icon,omitempty"`
	Device           haDeviceConfig `json:"device"`
}

// DayState is the retained state payload for the last closed day.
type DayState struct {
	Day                 string  `json:"day"`
	ConsumptionWh       float64 `json:"consumption_wh"`
	ProductionWh        float64 `json:"production_wh"`
	InjectionWh         float64 `json:"injection_wh"`
	ImportFromGridWh    float64 `json:"import_from_grid_wh"`
	SelfConsumptionRate float64 `json:"self_consumption_rate"`
	SelfProductionRate  float64 `json:"self_production_rate"`
}

type sensor struct {
	key         string
	name        string
	deviceClass string
	unit        string
	stateClass  string
	precision   int
	icon        string
}

var sensors = []sensor{
	{key: "consumption_wh", name: "Grid consumption", deviceClass: "energy", unit: "Wh", stateClass: "measurement"},
	{key: "production_wh", name: "Solar production", deviceClass: "energy", unit: "Wh", stateClass: "measurement"},
	{key: "injection_wh", name: "Grid injection", deviceClass: "energy", unit: "Wh", stateClass: "measurement"},
	{key: "import_from_grid_wh", name: "Grid import", deviceClass: "energy", unit: "Wh", stateClass: "measurement"},
	{key: "self_consumption_rate", name: "Self consumption", unit: "%", stateClass: "measurement", precision: 1, icon: "mdi:solar-power"},
	{key: "self_production_rate", name: "Self production", unit: "%", stateClass: "measurement", precision: 1, icon: "mdi:home-lightning-bolt"},
}
