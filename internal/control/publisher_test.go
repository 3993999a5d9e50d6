package control

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/audit"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
)

type recTransport struct {
	topics []string
	envs   []mqtt.Envelope
	err    error
}

func (t *recTransport) PublishEnvelope(topic string, env mqtt.Envelope) error {
	t.topics = append(t.topics, topic)
	t.envs = append(t.envs, env)
	return t.err
}

type recAudit struct {
	entries []*audit.Entry
	err     error
}

func (a *recAudit) Append(_ context.Context, e *audit.Entry) error {
	a.entries = append(a.entries, e)
	return a.err
}

type recNotifier struct {
	titles []string
	bodies []string
}

func (n *recNotifier) Notify(_ context.Context, _, title, body string, _ map[string]string) error {
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	return nil
}

type recLevels struct {
	deviceIDs []string
	levels    []int
}

func (l *recLevels) RecordLevel(_, deviceID, _ string, level int) {
	l.deviceIDs = append(l.deviceIDs, deviceID)
	l.levels = append(l.levels, level)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) (*device.DeviceStatus, error) {
	return nil, errors.New("redis down")
}

func (failingStore) Apply(context.Context, string, string, device.StatusUpdate) (*device.DeviceStatus, error) {
	return nil, errors.New("redis down")
}

type publisherRig struct {
	pub       *StatusPublisher
	store     *memStore
	transport *recTransport
	audit     *recAudit
	notifier  *recNotifier
	levels    *recLevels
}

func newPublisherRig() *publisherRig {
	rig := &publisherRig{
		store:     newMemStore(),
		transport: &recTransport{},
		audit:     &recAudit{},
		notifier:  &recNotifier{},
		levels:    &recLevels{},
	}
	rig.pub = NewStatusPublisher(
		rig.store, rig.transport, rig.audit, rig.notifier, rig.levels,
		ThresholdPolicy{DefaultMin: 25, DefaultMax: 75}, nil,
	)
	return rig
}

func TestPublishCommitsAndFansOut(t *testing.T) {
	rig := newPublisherRig()
	d := &device.Device{
		ID: "p-1", OrgID: "org-1", Name: "Pump 1",
		Type: device.TypePump, BlockID: "blk-1",
	}
	status := device.StatusOn

	st, err := rig.pub.Publish(context.Background(), PublishRequest{
		Device: d, Status: &status, Actor: "alice",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if st.Status != device.StatusOn || st.UpdatedBy != "alice" {
		t.Fatalf("committed record = %+v", st)
	}
	if rig.store.statusOf("org-1", "p-1") != device.StatusOn {
		t.Error("store not updated")
	}

	if len(rig.transport.topics) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(rig.transport.topics))
	}
	if got, want := rig.transport.topics[0], "flostat/org-1/command/blk-1/pump/p-1"; got != want {
		t.Errorf("topic = %s, want %s", got, want)
	}
	env := rig.transport.envs[0]
	if env.Type != mqtt.EventDeviceUpdate {
		t.Errorf("envelope type = %s", env.Type)
	}
	if env.UpdatedBy != "alice" {
		t.Errorf("envelope updated_by = %s", env.UpdatedBy)
	}

	if len(rig.audit.entries) != 1 {
		t.Fatalf("appended %d audit entries, want 1", len(rig.audit.entries))
	}
	entry := rig.audit.entries[0]
	if entry.DeviceID != "p-1" || entry.Actor != "alice" {
		t.Errorf("audit entry = %+v", entry)
	}
	if entry.Detail["status"] != device.StatusOn {
		t.Errorf("audit detail = %+v", entry.Detail)
	}
}

func TestPublishSumpTopicForcesNoneBlock(t *testing.T) {
	rig := newPublisherRig()
	d := &device.Device{
		ID: "s-1", OrgID: "org-1", Name: "Main Sump",
		Type: device.TypeSump, BlockID: "blk-1",
	}
	level := 60

	if _, err := rig.pub.Publish(context.Background(), PublishRequest{Device: d, Level: &level, Actor: "sensor"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got, want := rig.transport.topics[0], "flostat/org-1/command/none/sump/s-1"; got != want {
		t.Errorf("topic = %s, want %s", got, want)
	}
}

func TestPublishStoreFailureAbortsEverything(t *testing.T) {
	transport := &recTransport{}
	auditRec := &recAudit{}
	pub := NewStatusPublisher(failingStore{}, transport, auditRec, nil, nil, ThresholdPolicy{}, nil)

	status := device.StatusOn
	d := &device.Device{ID: "p-1", OrgID: "org-1", Type: device.TypePump}
	_, err := pub.Publish(context.Background(), PublishRequest{Device: d, Status: &status})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
	if len(transport.topics) != 0 || len(auditRec.entries) != 0 {
		t.Error("nothing downstream may run when the commit fails")
	}
}

func TestPublishTransportFailureDoesNotRollBack(t *testing.T) {
	rig := newPublisherRig()
	rig.transport.err = errors.New("broker gone")

	status := device.StatusOpen
	d := &device.Device{ID: "v-1", OrgID: "org-1", Name: "Valve 1", Type: device.TypeValve, BlockID: "blk-1"}

	st, err := rig.pub.Publish(context.Background(), PublishRequest{Device: d, Status: &status, Actor: "bob"})
	if err != nil {
		t.Fatalf("Publish() error = %v, transport failures are best effort", err)
	}
	if st.Status != device.StatusOpen {
		t.Error("commit must stand despite the transport failure")
	}
	if len(rig.audit.entries) != 1 {
		t.Error("audit must still run after a transport failure")
	}
}

func TestPublishAlertRules(t *testing.T) {
	on := device.StatusOn

	tests := []struct {
		name       string
		device     *device.Device
		status     *string
		level      *int
		wantTitles []string
	}{
		{
			name:       "pump status change always alerts",
			device:     &device.Device{ID: "p-1", OrgID: "org-1", Name: "Pump 1", Type: device.TypePump},
			status:     &on,
			wantTitles: []string{"Device update"},
		},
		{
			name:       "sump low level alerts",
			device:     &device.Device{ID: "s-1", OrgID: "org-1", Name: "Sump", Type: device.TypeSump},
			level:      intPtr(20),
			wantTitles: []string{"Low water alert"},
		},
		{
			name:   "sump healthy level is silent",
			device: &device.Device{ID: "s-1", OrgID: "org-1", Name: "Sump", Type: device.TypeSump},
			level:  intPtr(60),
		},
		{
			name: "tank low level alerts",
			device: &device.Device{ID: "t-1", OrgID: "org-1", Name: "Tank", Type: device.TypeTank,
				MinThreshold: intPtr(20), MaxThreshold: intPtr(80)},
			level:      intPtr(15),
			wantTitles: []string{"Tank low alert"},
		},
		{
			name: "tank high level alerts",
			device: &device.Device{ID: "t-1", OrgID: "org-1", Name: "Tank", Type: device.TypeTank,
				MinThreshold: intPtr(20), MaxThreshold: intPtr(80)},
			level:      intPtr(90),
			wantTitles: []string{"Tank high alert"},
		},
		{
			name: "tank mid-band level is silent",
			device: &device.Device{ID: "t-1", OrgID: "org-1", Name: "Tank", Type: device.TypeTank,
				MinThreshold: intPtr(20), MaxThreshold: intPtr(80)},
			level: intPtr(50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newPublisherRig()
			_, err := rig.pub.Publish(context.Background(), PublishRequest{
				Device: tt.device, Status: tt.status, Level: tt.level, Actor: "test",
			})
			if err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
			if len(rig.notifier.titles) != len(tt.wantTitles) {
				t.Fatalf("sent %d alerts %v, want %d", len(rig.notifier.titles), rig.notifier.titles, len(tt.wantTitles))
			}
			for i, want := range tt.wantTitles {
				if rig.notifier.titles[i] != want {
					t.Errorf("alert[%d] title = %s, want %s", i, rig.notifier.titles[i], want)
				}
			}
		})
	}
}

func TestPublishTankAlertBodyNamesThreshold(t *testing.T) {
	rig := newPublisherRig()
	d := &device.Device{ID: "t-1", OrgID: "org-1", Name: "Roof Tank", Type: device.TypeTank,
		MinThreshold: intPtr(20), MaxThreshold: intPtr(80)}
	level := 15

	if _, err := rig.pub.Publish(context.Background(), PublishRequest{Device: d, Level: &level}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(rig.notifier.bodies) != 1 || !strings.Contains(rig.notifier.bodies[0], "Roof Tank") {
		t.Fatalf("alert body = %v, want device name in body", rig.notifier.bodies)
	}
}

func TestPublishLevelHistoryOnlyOnLevelWrites(t *testing.T) {
	rig := newPublisherRig()

	status := device.StatusOn
	pump := &device.Device{ID: "p-1", OrgID: "org-1", Name: "Pump 1", Type: device.TypePump}
	if _, err := rig.pub.Publish(context.Background(), PublishRequest{Device: pump, Status: &status}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(rig.levels.deviceIDs) != 0 {
		t.Error("status-only write must not record level history")
	}

	sump := &device.Device{ID: "s-1", OrgID: "org-1", Name: "Sump", Type: device.TypeSump}
	level := 42
	if _, err := rig.pub.Publish(context.Background(), PublishRequest{Device: sump, Level: &level}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(rig.levels.deviceIDs) != 1 || rig.levels.levels[0] != 42 {
		t.Fatalf("level history = %v %v, want one point of 42", rig.levels.deviceIDs, rig.levels.levels)
	}
}

func TestPublishNilSinksAreOptional(t *testing.T) {
	store := newMemStore()
	pub := NewStatusPublisher(store, &recTransport{}, &recAudit{}, nil, nil, ThresholdPolicy{}, nil)

	level := 10
	d := &device.Device{ID: "s-1", OrgID: "org-1", Name: "Sump", Type: device.TypeSump}
	if _, err := pub.Publish(context.Background(), PublishRequest{Device: d, Level: &level}); err != nil {
		t.Fatalf("Publish() with nil notifier/levels: %v", err)
	}
}
