package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
)

// ackHandleTimeout bounds the store work done for one ack message.
const ackHandleTimeout = 10 * time.Second

// Subscriber registers MQTT message handlers.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// ackPayload is the data carried by a hardware acknowledgement message.
type ackPayload struct {
	ScheduleID string `json:"schedule_id"`
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"` // pump or valve
}

// AckConsumer subscribes to the per-org schedule ack topics and feeds
// hardware acknowledgements into the lifecycle state machine.
//
// Acks arriving for a schedule that is not pending are logged and dropped;
// a completed delete removes the record.
type AckConsumer struct {
	repo       Repository
	subscriber Subscriber
	topics     mqtt.Topics
	qos        byte
	logger     Logger
}

// NewAckConsumer creates the hardware acknowledgement consumer.
func NewAckConsumer(repo Repository, subscriber Subscriber, qos byte, logger Logger) *AckConsumer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &AckConsumer{
		repo:       repo,
		subscriber: subscriber,
		qos:        qos,
		logger:     logger,
	}
}

// Start subscribes to schedule acks from every org.
func (c *AckConsumer) Start() error {
	return c.subscriber.Subscribe(c.topics.AllScheduleAcks(), c.qos, c.Handle)
}

// Handle processes one acknowledgement message.
//
// The org comes from the topic (flostat/{org}/schedule/ack); the payload
// names the schedule and which controller is acknowledging.
func (c *AckConsumer) Handle(topic string, payload []byte) error {
	orgID, err := orgFromAckTopic(topic)
	if err != nil {
		return err
	}

	var env mqtt.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decoding ack envelope: %w", err)
	}

	switch env.Type {
	case mqtt.EventScheduleAck, mqtt.EventScheduleAckUpdate, mqtt.EventScheduleAckDelete:
	default:
		c.logger.Warn("ignoring unexpected event on ack topic",
			"topic", topic, "type", string(env.Type))
		return nil
	}

	data, err := json.Marshal(env.Data)
	if err != nil {
		return fmt.Errorf("re-encoding ack data: %w", err)
	}
	var ack ackPayload
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("decoding ack payload: %w", err)
	}
	if ack.ScheduleID == "" {
		return fmt.Errorf("ack payload missing schedule_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), ackHandleTimeout)
	defer cancel()

	return c.apply(ctx, orgID, ack)
}

// apply records one controller's ack and advances or removes the schedule
// when both are in.
func (c *AckConsumer) apply(ctx context.Context, orgID string, ack ackPayload) error {
	sched, err := c.repo.GetByID(ctx, orgID, ack.ScheduleID)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			c.logger.Warn("ack for unknown schedule",
				"org_id", orgID, "schedule_id", ack.ScheduleID)
			return nil
		}
		return err
	}

	var completed bool
	switch device.DeviceType(ack.DeviceType) {
	case device.TypePump:
		completed, err = sched.AckFromPump()
	case device.TypeValve:
		completed, err = sched.AckFromValve()
	default:
		c.logger.Warn("ack with unknown device type",
			"schedule_id", ack.ScheduleID, "device_type", ack.DeviceType)
		return nil
	}
	if err != nil {
		if errors.Is(err, ErrNotPending) {
			c.logger.Warn("ack for schedule not awaiting one",
				"schedule_id", sched.ID, "status", string(sched.Status))
			return nil
		}
		return err
	}

	if completed && sched.Status == StatusDeleted {
		return c.repo.Delete(ctx, orgID, sched.ID)
	}
	return c.repo.Update(ctx, sched)
}

// orgFromAckTopic extracts the org segment from flostat/{org}/schedule/ack.
// The topic must round-trip through the canonical builder.
func orgFromAckTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return "", fmt.Errorf("unexpected ack topic %q", topic)
	}
	org := parts[1]
	if org == "" || topic != (mqtt.Topics{}).ScheduleAck(org) {
		return "", fmt.Errorf("unexpected ack topic %q", topic)
	}
	return org, nil
}
