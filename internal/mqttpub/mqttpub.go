// Package mqttpub publishes decoded OBD-II readings and DTCs to an MQTT
// broker and relays inbound server commands back to the driving loop.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ryzhkov/obdscan/common"
)

const (
	DefaultUpdateInterval = 10 * time.Second
	DefaultBroker         = "tcp://localhost:1883"
	DefaultClientID       = "obdscan"
	DefaultTopic          = "vehicle/obd"
)

// Config holds the broker connection and topic layout.
type Config struct {
	Broker         string
	ClientID       string
	Topic          string
	DTCTopic       string
	CommandTopic   string
	AckTopic       string
	UpdateInterval time.Duration
}

// Snapshot is whatever aggregate the driving loop wants serialized under
// Config.Topic (e.g. the latest value of every PID polled this cycle).
type Snapshot interface {
	json.Marshaler
}

// Client publishes Snapshots/DTCs on a timer and relays ServerCommands to
// a caller-supplied handler.
type Client struct {
	config         Config
	client         mqtt.Client
	stopChan       chan struct{}
	dataSource     func() Snapshot
	commandHandler func(cmd common.ServerCommand) error
}

// NewClient builds a Client; it does not connect until Connect is called.
func NewClient(config Config, dataSource func() Snapshot, cmdHandler func(cmd common.ServerCommand) error) *Client {
	return &Client{
		config:         config,
		stopChan:       make(chan struct{}),
		dataSource:     dataSource,
		commandHandler: cmdHandler,
	}
}

// Connect dials the broker and subscribes to the command topic once
// connected (and on every reconnect, via SetOnConnectHandler).
func (c *Client) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("mqttpub: connected to broker")
		c.subscribeToCommands()
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("mqttpub: connection lost: %v", err)
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttpub: connecting to %s: %w", c.config.Broker, token.Error())
	}
	return nil
}

// StartPublishing begins periodic publication of dataSource() on
// UpdateInterval, returning once the background goroutine is launched.
func (c *Client) StartPublishing() {
	interval := c.config.UpdateInterval
	if interval == 0 {
		interval = DefaultUpdateInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Printf("mqttpub: publishing to %s every %v", c.config.Topic, interval)
		for {
			select {
			case <-c.stopChan:
				return
			case <-ticker.C:
				c.publishSnapshot()
			}
		}
	}()
}

// StopPublishing stops the publishing goroutine. It must be called at
// most once.
func (c *Client) StopPublishing() {
	close(c.stopChan)
}

// Disconnect closes the broker connection, if open.
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func (c *Client) publishSnapshot() {
	snapshot := c.dataSource()
	if snapshot == nil {
		return
	}
	data, err := snapshot.MarshalJSON()
	if err != nil {
		log.Printf("mqttpub: marshaling snapshot: %v", err)
		return
	}
	token := c.client.Publish(c.config.Topic, 0, false, data)
	if token.Wait() && token.Error() != nil {
		log.Printf("mqttpub: publishing snapshot: %v", token.Error())
	}
}

// PublishDTC publishes one DTC record immediately.
func (c *Client) PublishDTC(dtc common.DTCCode) {
	if c.client == nil || !c.client.IsConnected() {
		log.Println("mqttpub: not connected, dropping DTC publish")
		return
	}
	data, err := json.Marshal(dtc)
	if err != nil {
		log.Printf("mqttpub: marshaling DTC: %v", err)
		return
	}
	topic := c.config.DTCTopic
	if topic == "" {
		topic = c.config.Topic + "/dtc"
	}
	token := c.client.Publish(topic, 0, false, data)
	if token.Wait() && token.Error() != nil {
		log.Printf("mqttpub: publishing DTC %s: %v", dtc.Code, token.Error())
	}
}

// PublishAck publishes an acknowledgment for a handled ServerCommand.
func (c *Client) PublishAck(ack common.CommandAck) {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	data, err := json.Marshal(ack)
	if err != nil {
		log.Printf("mqttpub: marshaling command ack: %v", err)
		return
	}
	topic := c.config.AckTopic
	if topic == "" {
		topic = c.config.Topic + "/ack"
	}
	c.client.Publish(topic, 0, false, data)
}

func (c *Client) subscribeToCommands() {
	topic := c.config.CommandTopic
	if topic == "" {
		return
	}
	token := c.client.Subscribe(topic, 1, c.handleIncomingCommand)
	go func() {
		<-token.Done()
		if token.Error() != nil {
			log.Printf("mqttpub: subscribing to %s: %v", topic, token.Error())
		}
	}()
}

func (c *Client) handleIncomingCommand(_ mqtt.Client, msg mqtt.Message) {
	var cmd common.ServerCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("mqttpub: decoding command from %s: %v", msg.Topic(), err)
		return
	}

	if c.commandHandler == nil {
		return
	}
	if err := c.commandHandler(cmd); err != nil {
		ack := common.CommandAck{CommandID: cmd.ID, Success: false, Message: err.Error()}
		c.PublishAck(ack)
		return
	}
	c.PublishAck(common.CommandAck{CommandID: cmd.ID, Success: true})
}
