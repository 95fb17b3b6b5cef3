package services

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"angeleyes-http-service/config"
)

// InterfacePushService defines the push delivery interface. Delivery is
// best effort: a failed push never fails the operation that triggered it.
type InterfacePushService interface {
	Connect() error
	Disconnect()
	PushAlertToUser(userID uint, payload interface{}) error
	PushSystemMessage(messageType string, message map[string]interface{}) error
	IsAvailable() bool
}

// Topic constants
const (
	// Per-user notification topic, users/<id>/notifications
	TopicUserNotifications = "users/%d/notifications"

	// System broadcast topic
	TopicSystemBroadcast = "angeleyes/system"
)

// PushMessage is the envelope published to MQTT topics
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PushService delivers alert notifications over MQTT
type PushService struct {
	Config         *config.Config
	Client         mqtt.Client
	IsConnected    bool
	connectedMutex sync.RWMutex // guards IsConnected
	PublishMutex   sync.Mutex   // guards connection attempts and publishes
}

// NewPushService creates a new push service. When no broker is configured
// the service stays disconnected and every push becomes a no-op.
func NewPushService(cfg *config.Config) InterfacePushService {
	s := &PushService{
		Config: cfg,
	}

	if cfg.MQTTBrokerURL != "" {
		s.setupMQTTClient()
	}

	return s
}

// setupMQTTClient configures the MQTT client
func (s *PushService) setupMQTTClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Config.MQTTBrokerURL)
	// Unique client ID so multiple service instances do not clash
	opts.SetClientID(fmt.Sprintf("%s-%s-%d", s.Config.MQTTClientID, uuid.New().String()[:8], time.Now().UnixNano()))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Second * 30)
	opts.SetKeepAlive(time.Second * 60)
	opts.SetPingTimeout(time.Second * 10)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		config.Warning("[MQTT] unhandled message: topic=%s", msg.Topic())
	})

	if s.Config.MQTTUsername != "" {
		opts.SetUsername(s.Config.MQTTUsername)
		opts.SetPassword(s.Config.MQTTPassword)
	}

	if strings.HasPrefix(s.Config.MQTTBrokerURL, "ssl://") || strings.HasPrefix(s.Config.MQTTBrokerURL, "tls://") || s.Config.MQTTSSLEnabled {
		config.Info("[MQTT] using TLS connection")
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		config.Warning("[MQTT] connection lost: %v", err)
		s.connectedMutex.Lock()
		s.IsConnected = false
		s.connectedMutex.Unlock()
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		config.Info("[MQTT] connected to %s", s.Config.MQTTBrokerURL)
		s.connectedMutex.Lock()
		s.IsConnected = true
		s.connectedMutex.Unlock()
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		config.Info("[MQTT] reconnecting...")
	})

	s.Client = mqtt.NewClient(opts)
}

// IsAvailable reports whether push delivery is configured and connected
func (s *PushService) IsAvailable() bool {
	if s.Client == nil {
		return false
	}
	s.connectedMutex.RLock()
	defer s.connectedMutex.RUnlock()
	return s.IsConnected && s.Client.IsConnected()
}

// Connect connects to the MQTT broker
func (s *PushService) Connect() error {
	if s.Client == nil {
		config.Info("[MQTT] no broker configured, push delivery disabled")
		return nil
	}

	config.Info("[MQTT] connecting to %s...", s.Config.MQTTBrokerURL)

	s.PublishMutex.Lock()
	defer s.PublishMutex.Unlock()

	s.connectedMutex.RLock()
	isConnected := s.IsConnected && s.Client.IsConnected()
	s.connectedMutex.RUnlock()
	if isConnected {
		return nil
	}

	token := s.Client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("MQTT connect timed out")
	}
	if token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %v", token.Error())
	}

	return nil
}

// Disconnect closes the MQTT connection
func (s *PushService) Disconnect() {
	if s.Client != nil && s.Client.IsConnected() {
		s.Client.Disconnect(250)
	}
	s.connectedMutex.Lock()
	s.IsConnected = false
	s.connectedMutex.Unlock()
}

// PushAlertToUser publishes an alert to the user's notification topic
func (s *PushService) PushAlertToUser(userID uint, payload interface{}) error {
	topic := fmt.Sprintf(TopicUserNotifications, userID)
	return s.publishMessage(topic, PushMessage{
		Type:      "alert",
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}

// PushSystemMessage publishes a message to the system broadcast topic
func (s *PushService) PushSystemMessage(messageType string, message map[string]interface{}) error {
	return s.publishMessage(TopicSystemBroadcast, PushMessage{
		Type:      messageType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   message,
	})
}

// publishMessage publishes a message to a topic
func (s *PushService) publishMessage(topic string, payload interface{}) error {
	if s.Client == nil {
		// Push delivery not configured, silently drop
		return nil
	}

	s.PublishMutex.Lock()
	defer s.PublishMutex.Unlock()

	s.connectedMutex.RLock()
	isConnected := s.IsConnected && s.Client.IsConnected()
	s.connectedMutex.RUnlock()

	if !isConnected {
		return fmt.Errorf("MQTT client not connected")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	// QoS 1 so messages are delivered at least once
	token := s.Client.Publish(topic, 1, false, jsonData)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("publish timed out")
	}
	if token.Error() != nil {
		return fmt.Errorf("publish failed: %v", token.Error())
	}

	return nil
}
