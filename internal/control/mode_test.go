package control

import (
	"context"
	"errors"
	"testing"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

// fakeBlocks serves fixed blocks and can simulate infrastructure failure.
type fakeBlocks struct {
	blocks map[string]*device.Block
	err    error
}

func (b *fakeBlocks) GetByID(_ context.Context, orgID, id string) (*device.Block, error) {
	if b.err != nil {
		return nil, b.err
	}
	blk, ok := b.blocks[orgID+"/"+id]
	if !ok {
		return nil, device.ErrBlockNotFound
	}
	return blk, nil
}

func (b *fakeBlocks) List(context.Context, string) ([]device.Block, error) { return nil, nil }
func (b *fakeBlocks) Create(context.Context, *device.Block) error          { return nil }
func (b *fakeBlocks) SetMode(context.Context, string, string, device.Mode, string) error {
	return nil
}

func TestModeResolver(t *testing.T) {
	blocks := &fakeBlocks{blocks: map[string]*device.Block{
		"org-1/blk-auto":   {ID: "blk-auto", OrgID: "org-1", Mode: device.ModeAuto},
		"org-1/blk-manual": {ID: "blk-manual", OrgID: "org-1", Mode: device.ModeManual},
		"org-1/blk-unset":  {ID: "blk-unset", OrgID: "org-1"},
	}}
	resolver := NewModeResolver(blocks)

	tests := []struct {
		name   string
		device *device.Device
		want   device.Mode
	}{
		{
			name:   "sump is always manual",
			device: &device.Device{ID: "s1", OrgID: "org-1", Type: device.TypeSump, BlockID: "blk-auto"},
			want:   device.ModeManual,
		},
		{
			name:   "blockless device is manual",
			device: &device.Device{ID: "p1", OrgID: "org-1", Type: device.TypePump},
			want:   device.ModeManual,
		},
		{
			name:   "block sentinel is manual",
			device: &device.Device{ID: "p1", OrgID: "org-1", Type: device.TypePump, BlockID: device.BlockNone},
			want:   device.ModeManual,
		},
		{
			name:   "auto block resolves auto",
			device: &device.Device{ID: "v1", OrgID: "org-1", Type: device.TypeValve, BlockID: "blk-auto"},
			want:   device.ModeAuto,
		},
		{
			name:   "manual block resolves manual",
			device: &device.Device{ID: "v1", OrgID: "org-1", Type: device.TypeValve, BlockID: "blk-manual"},
			want:   device.ModeManual,
		},
		{
			name:   "unset block mode is manual",
			device: &device.Device{ID: "v1", OrgID: "org-1", Type: device.TypeValve, BlockID: "blk-unset"},
			want:   device.ModeManual,
		},
		{
			name:   "missing block is manual",
			device: &device.Device{ID: "v1", OrgID: "org-1", Type: device.TypeValve, BlockID: "ghost"},
			want:   device.ModeManual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), tt.device)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestModeResolverInfrastructureFault(t *testing.T) {
	blocks := &fakeBlocks{err: errors.New("connection refused")}
	resolver := NewModeResolver(blocks)

	d := &device.Device{ID: "v1", OrgID: "org-1", Type: device.TypeValve, BlockID: "blk-1"}
	if _, err := resolver.Resolve(context.Background(), d); err == nil {
		t.Fatal("infrastructure failure must propagate, not default to manual")
	}
}
