package control

import (
	"context"
	"fmt"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/audit"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
)

// TransportPublisher publishes envelopes on the MQTT transport.
type TransportPublisher interface {
	PublishEnvelope(topic string, env mqtt.Envelope) error
}

// AuditAppender appends immutable audit entries.
type AuditAppender interface {
	Append(ctx context.Context, e *audit.Entry) error
}

// Notifier fans a push alert out to an org's registered tokens.
type Notifier interface {
	Notify(ctx context.Context, orgID, title, body string, data map[string]string) error
}

// LevelSink records level history. Implementations must be non-blocking.
type LevelSink interface {
	RecordLevel(orgID, deviceID, deviceType string, level int)
}

// StatusPublisher commits status mutations and fans them out.
//
// The store write is the commit point: a failure there aborts the operation
// and nothing downstream runs. Everything after it (MQTT, audit, alerts,
// level history) is best effort; failures are logged and swallowed so a
// flaky collaborator cannot roll back a mutation that already happened.
type StatusPublisher struct {
	store      device.StatusStore
	transport  TransportPublisher
	audit      AuditAppender
	notifier   Notifier
	levels     LevelSink
	thresholds ThresholdPolicy
	topics     mqtt.Topics
	logger     Logger
}

// NewStatusPublisher creates a status publisher.
//
// Parameters:
//   - store: live status store (required)
//   - transport: MQTT publisher (required)
//   - auditLog: audit appender (required)
//   - notifier: push alert sink (may be nil; alerting is then skipped)
//   - levels: level history sink (may be nil; history is then skipped)
//   - thresholds: injected default thresholds for alert gating
//   - logger: logger instance (may be nil)
func NewStatusPublisher(
	store device.StatusStore,
	transport TransportPublisher,
	auditLog AuditAppender,
	notifier Notifier,
	levels LevelSink,
	thresholds ThresholdPolicy,
	logger Logger,
) *StatusPublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StatusPublisher{
		store:      store,
		transport:  transport,
		audit:      auditLog,
		notifier:   notifier,
		levels:     levels,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Publish commits the mutation and fans it out.
func (p *StatusPublisher) Publish(ctx context.Context, req PublishRequest) (*device.DeviceStatus, error) {
	d := req.Device

	blockID := d.BlockID
	if d.Type == device.TypeSump || blockID == "" {
		blockID = device.BlockNone
	}

	st, err := p.store.Apply(ctx, d.OrgID, d.ID, device.StatusUpdate{
		Status:    req.Status,
		Level:     req.Level,
		UpdatedBy: req.Actor,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	topic := p.topics.DeviceCommand(d.OrgID, blockID, string(d.Type), d.ID)
	env := mqtt.NewActorEnvelope(mqtt.EventDeviceUpdate, st, req.Actor)
	if err := p.transport.PublishEnvelope(topic, env); err != nil {
		p.logger.Error("publishing device update",
			"device_id", d.ID, "topic", topic, "error", err)
	}

	if err := p.audit.Append(ctx, &audit.Entry{
		OrgID:     d.OrgID,
		DeviceID:  d.ID,
		EventType: string(mqtt.EventDeviceUpdate),
		Detail:    statusDetail(st, d),
		Actor:     req.Actor,
	}); err != nil {
		p.logger.Error("appending audit entry", "device_id", d.ID, "error", err)
	}

	p.alert(ctx, d, st)

	if req.Level != nil && p.levels != nil {
		p.levels.RecordLevel(d.OrgID, d.ID, string(d.Type), *req.Level)
	}

	return st, nil
}

// alert applies the per-type alerting rules:
//   - pump/valve: every status change is itself the alert
//   - sump: low-water only
//   - tank: low and high, checked independently
func (p *StatusPublisher) alert(ctx context.Context, d *device.Device, st *device.DeviceStatus) {
	if p.notifier == nil {
		return
	}

	data := map[string]string{
		"org_id":    d.OrgID,
		"device_id": d.ID,
		"type":      string(d.Type),
	}

	minT, maxT := p.thresholds.Resolve(d)

	switch d.Type {
	case device.TypePump, device.TypeValve:
		if st.Status == "" {
			return
		}
		p.send(ctx, d.OrgID, "Device update",
			fmt.Sprintf("%s is now %s", d.Name, st.Status), data)

	case device.TypeSump:
		if st.Level != nil && *st.Level <= minT {
			p.send(ctx, d.OrgID, "Low water alert",
				fmt.Sprintf("%s level is %d%%, at or below minimum %d%%", d.Name, *st.Level, minT), data)
		}

	case device.TypeTank:
		if st.Level == nil {
			return
		}
		if *st.Level <= minT {
			p.send(ctx, d.OrgID, "Tank low alert",
				fmt.Sprintf("%s level is %d%%, at or below minimum %d%%", d.Name, *st.Level, minT), data)
		}
		if *st.Level >= maxT {
			p.send(ctx, d.OrgID, "Tank high alert",
				fmt.Sprintf("%s level is %d%%, at or above maximum %d%%", d.Name, *st.Level, maxT), data)
		}
	}
}

func (p *StatusPublisher) send(ctx context.Context, orgID, title, body string, data map[string]string) {
	if err := p.notifier.Notify(ctx, orgID, title, body, data); err != nil {
		p.logger.Warn("push alert failed", "org_id", orgID, "error", err)
	}
}

// statusDetail flattens a status record for the audit trail.
func statusDetail(st *device.DeviceStatus, d *device.Device) map[string]any {
	detail := map[string]any{
		"device_id": st.DeviceID,
		"type":      string(d.Type),
		"block_id":  d.BlockID,
	}
	if st.Status != "" {
		detail["status"] = st.Status
	}
	if st.Level != nil {
		detail["current_level"] = *st.Level
	}
	return detail
}
