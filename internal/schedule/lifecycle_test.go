package schedule

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
)

// memRepo is an in-memory schedule repository for tests.
type memRepo struct {
	schedules map[string]*Schedule
}

func newMemRepo() *memRepo {
	return &memRepo{schedules: make(map[string]*Schedule)}
}

func (r *memRepo) GetByID(_ context.Context, orgID, id string) (*Schedule, error) {
	s, ok := r.schedules[orgID+"/"+id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cpy := *s
	return &cpy, nil
}

func (r *memRepo) ListByOrg(_ context.Context, orgID string) ([]Schedule, error) {
	var out []Schedule
	for k, s := range r.schedules {
		if strings.HasPrefix(k, orgID+"/") {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memRepo) ListByValve(_ context.Context, orgID, valveID string) ([]Schedule, error) {
	var out []Schedule
	for k, s := range r.schedules {
		if strings.HasPrefix(k, orgID+"/") && s.ValveID == valveID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, s *Schedule) error {
	cpy := *s
	r.schedules[s.OrgID+"/"+s.ID] = &cpy
	return nil
}

func (r *memRepo) Update(_ context.Context, s *Schedule) error {
	if _, ok := r.schedules[s.OrgID+"/"+s.ID]; !ok {
		return ErrScheduleNotFound
	}
	cpy := *s
	r.schedules[s.OrgID+"/"+s.ID] = &cpy
	return nil
}

func (r *memRepo) Delete(_ context.Context, orgID, id string) error {
	if _, ok := r.schedules[orgID+"/"+id]; !ok {
		return ErrScheduleNotFound
	}
	delete(r.schedules, orgID+"/"+id)
	return nil
}

// fakeCatalog serves fixed devices by (org, id).
type fakeCatalog struct {
	devices map[string]*device.Device
}

func (c *fakeCatalog) GetByID(_ context.Context, orgID, id string) (*device.Device, error) {
	d, ok := c.devices[orgID+"/"+id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return d, nil
}

func (c *fakeCatalog) List(context.Context, string) ([]device.Device, error) { return nil, nil }
func (c *fakeCatalog) ListChildren(context.Context, string, string) ([]device.Device, error) {
	return nil, nil
}
func (c *fakeCatalog) ListByBlockAndType(context.Context, string, string, device.DeviceType) ([]device.Device, error) {
	return nil, nil
}
func (c *fakeCatalog) Create(context.Context, *device.Device) error { return nil }
func (c *fakeCatalog) Update(context.Context, *device.Device) error { return nil }
func (c *fakeCatalog) Delete(context.Context, string, string) error { return nil }
func (c *fakeCatalog) UpdateThresholds(context.Context, string, []string, int, int) device.BatchResult {
	return device.BatchResult{}
}

// recordingTransport captures published envelopes per topic.
type recordingTransport struct {
	published []publishedMsg
}

type publishedMsg struct {
	topic string
	env   mqtt.Envelope
}

func (t *recordingTransport) PublishEnvelope(topic string, env mqtt.Envelope) error {
	t.published = append(t.published, publishedMsg{topic: topic, env: env})
	return nil
}

func testValve(orgID, id, pumpID string) *device.Device {
	return &device.Device{
		ID:       id,
		OrgID:    orgID,
		Name:     "Valve " + id,
		Type:     device.TypeValve,
		ParentID: &pumpID,
		BlockID:  "blk-1",
	}
}

func newTestService(t *testing.T) (*Service, *memRepo, *recordingTransport) {
	t.Helper()
	repo := newMemRepo()
	transport := &recordingTransport{}
	catalog := &fakeCatalog{devices: map[string]*device.Device{
		"org-1/v-1": testValve("org-1", "v-1", "p-1"),
	}}
	svc := NewService(repo, catalog, transport, SafetyOffset{}, nil)
	return svc, repo, transport
}

func TestRequestCreate(t *testing.T) {
	svc, repo, transport := newTestService(t)

	sched, err := svc.RequestCreate(context.Background(), CreateRequest{
		OrgID:     "org-1",
		BlockID:   "blk-1",
		ValveID:   "v-1",
		Days:      []int{1, 3, 5},
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
		CreatedBy: "ops@example.com",
	})
	if err != nil {
		t.Fatalf("RequestCreate() error = %v", err)
	}

	if sched.Status != StatusCreating {
		t.Errorf("status = %s, want CREATING", sched.Status)
	}
	if sched.PumpAck || sched.ValveAck {
		t.Error("new schedule must start with both acks cleared")
	}
	if sched.PumpID != "p-1" {
		t.Errorf("pump id = %s, want p-1", sched.PumpID)
	}
	if sched.PStartTime != "09:00:30" {
		t.Errorf("p_start_time = %s, want 09:00:30", sched.PStartTime)
	}

	if _, err := repo.GetByID(context.Background(), "org-1", sched.ID); err != nil {
		t.Errorf("schedule not persisted: %v", err)
	}

	// Valve hardware, pump hardware, block broadcast.
	if len(transport.published) != 3 {
		t.Fatalf("published %d messages, want 3", len(transport.published))
	}
	wantTopics := map[string]bool{
		"flostat/org-1/command/blk-1/valve/v-1/hardware": false,
		"flostat/org-1/command/blk-1/pump/p-1/hardware":  false,
		"flostat/org-1/blk-1":                            false,
	}
	for _, msg := range transport.published {
		if _, ok := wantTopics[msg.topic]; !ok {
			t.Errorf("unexpected publish topic %s", msg.topic)
			continue
		}
		wantTopics[msg.topic] = true
		if msg.env.Type != mqtt.EventScheduleCreated {
			t.Errorf("event type on %s = %s, want SCHEDULE_CREATED", msg.topic, msg.env.Type)
		}
		if msg.env.Timestamp == "" {
			t.Errorf("envelope on %s missing timestamp", msg.topic)
		}
		payload, ok := msg.env.Data.(scheduleMessage)
		if !ok {
			t.Errorf("payload on %s is %T, want scheduleMessage", msg.topic, msg.env.Data)
			continue
		}
		if payload.Acknowledge.ValveID != "v-1" || payload.Acknowledge.PumpID != "p-1" {
			t.Errorf("acknowledge pair on %s = %+v, want v-1/p-1", msg.topic, payload.Acknowledge)
		}
	}
	for topic, seen := range wantTopics {
		if !seen {
			t.Errorf("missing publish on %s", topic)
		}
	}
}

func TestRequestCreateRejectsBadWindows(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, window := range [][2]string{
		{"10:00", "10:00"}, // equal
		{"11:00", "10:00"}, // reversed
		{"25:00", "26:00"}, // unparseable
	} {
		_, err := svc.RequestCreate(context.Background(), CreateRequest{
			OrgID: "org-1", BlockID: "blk-1", ValveID: "v-1",
			StartTime: window[0], EndTime: window[1],
		})
		if !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("window %v: error = %v, want ErrInvalidWindow", window, err)
		}
	}
}

func TestRequestCreateValveChecksBeforeConflicts(t *testing.T) {
	repo := newMemRepo()
	transport := &recordingTransport{}
	orphan := &device.Device{ID: "v-orphan", OrgID: "org-1", Name: "Orphan", Type: device.TypeValve}
	catalog := &fakeCatalog{devices: map[string]*device.Device{
		"org-1/v-orphan": orphan,
		"org-1/p-1":      {ID: "p-1", OrgID: "org-1", Name: "Pump", Type: device.TypePump},
	}}
	svc := NewService(repo, catalog, transport, SafetyOffset{}, nil)

	_, err := svc.RequestCreate(context.Background(), CreateRequest{
		OrgID: "org-1", BlockID: "blk-1", ValveID: "v-orphan",
		StartTime: "09:00", EndTime: "10:00",
	})
	if !errors.Is(err, ErrValveNotConnected) {
		t.Errorf("orphan valve: error = %v, want ErrValveNotConnected", err)
	}

	_, err = svc.RequestCreate(context.Background(), CreateRequest{
		OrgID: "org-1", BlockID: "blk-1", ValveID: "p-1",
		StartTime: "09:00", EndTime: "10:00",
	})
	if !errors.Is(err, ErrNotValve) {
		t.Errorf("non-valve device: error = %v, want ErrNotValve", err)
	}

	_, err = svc.RequestCreate(context.Background(), CreateRequest{
		OrgID: "org-1", BlockID: "blk-1", ValveID: "ghost",
		StartTime: "09:00", EndTime: "10:00",
	})
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("missing valve: error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRequestCreateConflict(t *testing.T) {
	svc, _, transport := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RequestCreate(ctx, CreateRequest{
		OrgID: "org-1", BlockID: "blk-1", ValveID: "v-1",
		StartTime: "09:00", EndTime: "10:00",
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	publishedBefore := len(transport.published)

	_, err := svc.RequestCreate(ctx, CreateRequest{
		OrgID: "org-1", BlockID: "blk-1", ValveID: "v-1",
		StartTime: "09:30", EndTime: "09:45",
	})

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("contained window: error = %v, want ConflictError", err)
	}
	if len(conflict.Schedules) != 1 {
		t.Fatalf("conflict carries %d schedules, want 1", len(conflict.Schedules))
	}
	if len(conflict.Options) != 3 {
		t.Errorf("conflict carries %d resolution options, want 3", len(conflict.Options))
	}
	if len(transport.published) != publishedBefore {
		t.Error("conflicting create must not publish")
	}
}

func TestRequestUpdate(t *testing.T) {
	svc, repo, transport := newTestService(t)
	ctx := context.Background()

	created, err := svc.RequestCreate(ctx, CreateRequest{
		OrgID: "org-1", BlockID: "blk-1", ValveID: "v-1",
		StartTime: "09:00", EndTime: "10:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate both acks so the schedule is settled before updating.
	stored, _ := repo.GetByID(ctx, "org-1", created.ID)
	stored.AckFromPump()
	stored.AckFromValve()
	repo.Update(ctx, stored)

	transport.published = nil
	updated, err := svc.RequestUpdate(ctx, UpdateRequest{
		OrgID: "org-1", ID: created.ID,
		StartTime: "09:00", EndTime: "11:00",
	})
	if err != nil {
		t.Fatalf("RequestUpdate() error = %v", err)
	}

	if updated.Status != StatusUpdating {
		t.Errorf("status = %s, want UPDATING", updated.Status)
	}
	if updated.PumpAck || updated.ValveAck {
		t.Error("update must clear both acks")
	}
	if updated.EndTime != "11:00" {
		t.Errorf("end time = %s, want 11:00", updated.EndTime)
	}
	if len(transport.published) != 3 {
		t.Errorf("published %d messages, want 3", len(transport.published))
	}
	for _, msg := range transport.published {
		if msg.env.Type != mqtt.EventScheduleUpdate {
			t.Errorf("event type = %s, want SCHEDULE_UPDATE", msg.env.Type)
		}
	}

	// Updating onto its own window must not self-conflict.
	if _, err := svc.RequestUpdate(ctx, UpdateRequest{
		OrgID: "org-1", ID: created.ID,
		StartTime: "09:00", EndTime: "11:00",
	}); err != nil {
		t.Errorf("update onto own window: %v", err)
	}
}

func TestRequestDelete(t *testing.T) {
	svc, repo, transport := newTestService(t)
	ctx := context.Background()

	created, err := svc.RequestCreate(ctx, CreateRequest{
		OrgID: "org-1", BlockID: "blk-1", ValveID: "v-1",
		StartTime: "09:00", EndTime: "10:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	transport.published = nil
	deleted, err := svc.RequestDelete(ctx, "org-1", created.ID)
	if err != nil {
		t.Fatalf("RequestDelete() error = %v", err)
	}

	if deleted.Status != StatusDeleting {
		t.Errorf("status = %s, want DELETING", deleted.Status)
	}
	if deleted.PumpAck || deleted.ValveAck {
		t.Error("delete must clear both acks")
	}

	// Record stays until hardware acknowledges.
	if _, err := repo.GetByID(ctx, "org-1", created.ID); err != nil {
		t.Errorf("record removed before acknowledgement: %v", err)
	}
	for _, msg := range transport.published {
		if msg.env.Type != mqtt.EventScheduleDelete {
			t.Errorf("event type = %s, want SCHEDULE_DELETE", msg.env.Type)
		}
	}

	if _, err := svc.RequestDelete(ctx, "org-1", "ghost"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("deleting unknown schedule: error = %v, want ErrScheduleNotFound", err)
	}
}

func TestActiveFor(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	// Window that covers 09:30 every day.
	repo.Create(ctx, &Schedule{
		ID: "s-all", OrgID: "org-1", BlockID: "blk-1", ValveID: "v-1",
		StartTime: "09:00", EndTime: "10:00", Status: StatusCreated,
	})
	// Window restricted to Mondays only.
	repo.Create(ctx, &Schedule{
		ID: "s-mon", OrgID: "org-1", BlockID: "blk-1", ValveID: "v-1",
		Days: []int{1}, StartTime: "09:00", EndTime: "10:00", Status: StatusCreated,
	})

	// 2026-08-30 is a Sunday.
	sunday := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	active, err := svc.ActiveFor(ctx, "org-1", "blk-1", "v-1", sunday)
	if err != nil {
		t.Fatalf("ActiveFor() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != "s-all" {
		t.Fatalf("active on Sunday = %v, want only s-all", active)
	}

	monday := sunday.AddDate(0, 0, 1)
	active, err = svc.ActiveFor(ctx, "org-1", "blk-1", "v-1", monday)
	if err != nil {
		t.Fatalf("ActiveFor() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active on Monday = %d schedules, want 2", len(active))
	}

	outside := time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)
	active, err = svc.ActiveFor(ctx, "org-1", "blk-1", "v-1", outside)
	if err != nil {
		t.Fatalf("ActiveFor() error = %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active outside any window = %d schedules, want 0", len(active))
	}
}
