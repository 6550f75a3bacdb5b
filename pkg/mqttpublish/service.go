package mqttpublish

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/config"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/ratio"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

const publishTimeout = 10 * time.Second

// Publisher pushes closed-day totals to Home Assistant.
type Publisher struct {
	client mqtt.Client
	prefix string
}

// Connect returns a nil Publisher when no broker is configured.
func Connect(ctx context.Context, cfg config.MQTTConfig) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warnf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker at %s", cfg.Broker)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, err)
	}

	p := &Publisher{client: client, prefix: cfg.TopicPrefix}
	if err := p.publishAll(DiscoveryMessages(p.prefix)); err != nil {
		client.Disconnect(250)
		return nil, err
	}
	return p, nil
}

// brokerURL accepts a bare host the way the broker is usually written in config.
func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	if !strings.Contains(broker, ":") {
		broker += ":1883"
	}
	return "tcp://" + broker
}

func stateTopic(prefix string) string {
	return prefix + "/state"
}

// DiscoveryMessages builds one retained config message per sensor.
func DiscoveryMessages(prefix string) []Message {
	deviceId := path.Base(prefix)
	device := haDeviceConfig{
		Identifiers:  []string{deviceId},
		Name:         "Energy flow",
		Manufacturer: "European Smart Meter",
		Model:        "P1 + PV inverter",
	}

	messages := make([]Message, 0, len(sensors))
	for _, s := range sensors {
		cfg := haEntityConfig{
			Name:             s.name,
			DeviceClass:      s.deviceClass,
			StateTopic:       stateTopic(prefix),
			UnitOfMeasure:    s.unit,
			ValueTemplate:    "{{ value_json." + s.key + " }}",
			UniqueId:         deviceId + "_" + s.key,
			StateClass:       s.stateClass,
			DisplayPrecision: s.precision,
			Icon:             s.icon,
			Device:           device,
		}
		payload, _ := json.Marshal(cfg)
		messages = append(messages, Message{
			Topic:   prefix + "_" + s.key + "/config",
			Payload: payload,
			QoS:     2,
			Retain:  true,
		})
	}
	return messages
}

// DayMessage builds the retained state message for one closed day.
func DayMessage(prefix, day string, totals types.DailyTotals) Message {
	ratios := ratio.FromTotals(totals)
	payload, _ := json.Marshal(DayState{
		Day:                 day,
		ConsumptionWh:       totals.ConsumptionWh,
		ProductionWh:        totals.ProductionWh,
		InjectionWh:         totals.InjectionWh,
		ImportFromGridWh:    totals.ImportFromGridWh,
		SelfConsumptionRate: ratios.SelfConsumptionRate,
		SelfProductionRate:  ratios.SelfProductionRate,
	})
	return Message{
		Topic:   stateTopic(prefix),
		Payload: payload,
		QoS:     1,
		Retain:  true,
	}
}

// PublishDay is a no-op on a nil Publisher.
func (p *Publisher) PublishDay(day string, totals types.DailyTotals) error {
	if p == nil {
		return nil
	}
	return p.publish(DayMessage(p.prefix, day, totals))
}

func (p *Publisher) publishAll(messages []Message) error {
	for _, msg := range messages {
		if err := p.publish(msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(msg Message) error {
	token := p.client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", msg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}
