package schedule

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
)

func ackMessage(t *testing.T, event mqtt.EventType, scheduleID, deviceType string) []byte {
	t.Helper()
	env := mqtt.Envelope{
		Type: event,
		Data: ackPayload{ScheduleID: scheduleID, DeviceType: deviceType},
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshalling ack: %v", err)
	}
	return b
}

func seedPending(t *testing.T, repo *memRepo, status Status) *Schedule {
	t.Helper()
	s := &Schedule{
		ID: "s-1", OrgID: "org-1", BlockID: "blk-1",
		ValveID: "v-1", PumpID: "p-1",
		StartTime: "09:00", EndTime: "10:00",
		Status: status,
	}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("seeding schedule: %v", err)
	}
	return s
}

func TestAckConsumerCreateFlow(t *testing.T) {
	repo := newMemRepo()
	seedPending(t, repo, StatusCreating)
	consumer := NewAckConsumer(repo, nil, 1, nil)
	topic := "flostat/org-1/schedule/ack"

	if err := consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAck, "s-1", "pump")); err != nil {
		t.Fatalf("pump ack: %v", err)
	}

	s, _ := repo.GetByID(context.Background(), "org-1", "s-1")
	if !s.PumpAck || s.ValveAck {
		t.Fatalf("after pump ack: pump_ack=%v valve_ack=%v", s.PumpAck, s.ValveAck)
	}
	if s.Status != StatusCreating {
		t.Fatalf("status advanced with one ack: %s", s.Status)
	}

	if err := consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAck, "s-1", "valve")); err != nil {
		t.Fatalf("valve ack: %v", err)
	}

	s, _ = repo.GetByID(context.Background(), "org-1", "s-1")
	if s.Status != StatusCreated {
		t.Fatalf("status = %s, want CREATED", s.Status)
	}
}

func TestAckConsumerUpdateFlow(t *testing.T) {
	repo := newMemRepo()
	seedPending(t, repo, StatusUpdating)
	consumer := NewAckConsumer(repo, nil, 1, nil)
	topic := "flostat/org-1/schedule/ack"

	consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAckUpdate, "s-1", "valve"))
	consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAckUpdate, "s-1", "pump"))

	s, _ := repo.GetByID(context.Background(), "org-1", "s-1")
	if s.Status != StatusUpdated {
		t.Fatalf("status = %s, want UPDATED", s.Status)
	}
}

func TestAckConsumerDeleteRemovesRecord(t *testing.T) {
	repo := newMemRepo()
	seedPending(t, repo, StatusDeleting)
	consumer := NewAckConsumer(repo, nil, 1, nil)
	topic := "flostat/org-1/schedule/ack"

	consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAckDelete, "s-1", "pump"))

	// One ack in: record still present.
	if _, err := repo.GetByID(context.Background(), "org-1", "s-1"); err != nil {
		t.Fatalf("record removed after single ack: %v", err)
	}

	consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAckDelete, "s-1", "valve"))

	if _, err := repo.GetByID(context.Background(), "org-1", "s-1"); err == nil {
		t.Fatal("record still present after both delete acks")
	}
}

func TestAckConsumerIgnoresSettledSchedules(t *testing.T) {
	repo := newMemRepo()
	seedPending(t, repo, StatusCreated)
	consumer := NewAckConsumer(repo, nil, 1, nil)
	topic := "flostat/org-1/schedule/ack"

	if err := consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAck, "s-1", "pump")); err != nil {
		t.Fatalf("ack on settled schedule should be dropped, got %v", err)
	}

	s, _ := repo.GetByID(context.Background(), "org-1", "s-1")
	if s.PumpAck {
		t.Fatal("settled schedule must not record new acks")
	}
}

func TestAckConsumerBadInput(t *testing.T) {
	repo := newMemRepo()
	seedPending(t, repo, StatusCreating)
	consumer := NewAckConsumer(repo, nil, 1, nil)
	topic := "flostat/org-1/schedule/ack"

	if err := consumer.Handle("flostat/org-1/other", []byte("{}")); err == nil {
		t.Error("unexpected topic shape should error")
	}
	if err := consumer.Handle(topic, []byte("not json")); err == nil {
		t.Error("malformed payload should error")
	}
	// Unknown schedule and unknown device type are dropped, not errors.
	if err := consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAck, "ghost", "pump")); err != nil {
		t.Errorf("unknown schedule: %v", err)
	}
	if err := consumer.Handle(topic, ackMessage(t, mqtt.EventScheduleAck, "s-1", "drone")); err != nil {
		t.Errorf("unknown device type: %v", err)
	}
	// Device events on the ack topic are ignored.
	if err := consumer.Handle(topic, ackMessage(t, mqtt.EventDeviceUpdate, "s-1", "pump")); err != nil {
		t.Errorf("non-ack event: %v", err)
	}
}

func TestOrgFromAckTopic(t *testing.T) {
	org, err := orgFromAckTopic("flostat/org-42/schedule/ack")
	if err != nil {
		t.Fatalf("orgFromAckTopic() error = %v", err)
	}
	if org != "org-42" {
		t.Fatalf("org = %s, want org-42", org)
	}

	bad := []string{
		"flostat/org-42/schedule",
		"flostat//schedule/ack",
		"other/org-42/schedule/ack",
		"flostat/org-42/status/ack",
	}
	for _, topic := range bad {
		if _, err := orgFromAckTopic(topic); err == nil {
			t.Errorf("orgFromAckTopic(%q) accepted a malformed topic", topic)
		}
	}
}
