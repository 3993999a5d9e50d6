package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

// ModeResolver determines the operating mode governing a device.
//
// Automation only runs where a block's mode has been explicitly set to auto;
// everything else fails safe to manual: sumps, devices outside any block,
// blocks that don't exist, and blocks whose mode was never set.
type ModeResolver struct {
	blocks device.Blocks
}

// NewModeResolver creates a mode resolver over the block repository.
func NewModeResolver(blocks device.Blocks) *ModeResolver {
	return &ModeResolver{blocks: blocks}
}

// Resolve returns the effective mode for a device.
// Infrastructure failures on the block lookup propagate as errors; a missing
// block is not a failure, it resolves to manual.
func (r *ModeResolver) Resolve(ctx context.Context, d *device.Device) (device.Mode, error) {
	if d.Type == device.TypeSump {
		return device.ModeManual, nil
	}
	if d.BlockID == "" || d.BlockID == device.BlockNone {
		return device.ModeManual, nil
	}

	block, err := r.blocks.GetByID(ctx, d.OrgID, d.BlockID)
	if err != nil {
		if errors.Is(err, device.ErrBlockNotFound) {
			return device.ModeManual, nil
		}
		return "", fmt.Errorf("resolving mode for %s: %w", d.ID, err)
	}

	if block.Mode == "" {
		return device.ModeManual, nil
	}
	return block.Mode, nil
}
