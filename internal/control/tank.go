package control

import (
	"context"
	"fmt"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

// handleTank mirrors a tank's fill level onto its parent device.
//
// Tanks are telemetry-only unless the block is in auto mode and the tank has
// a controllable parent. In auto mode, a level at or below the minimum
// threshold demands water (pump ON / valve OPEN) and a level at or above the
// maximum shuts it off (pump OFF / valve CLOSE). Levels strictly between the
// thresholds leave everything alone.
func (e *Engine) handleTank(ctx context.Context, d *device.Device, st *device.DeviceStatus, mode device.Mode, actor string) (Result, error) {
	if st.Level == nil {
		return noOpResult("tank has no level reading"), nil
	}
	if !d.HasParent() {
		return noOpResult("tank has no controllable parent"), nil
	}
	if mode != device.ModeAuto {
		return noOpResult("tank in manual mode, level recorded only"), nil
	}

	parent, err := e.catalog.GetByID(ctx, d.OrgID, *d.ParentID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	minT, maxT := e.thresholds.Resolve(d)
	level := *st.Level

	var want string
	switch {
	case level <= minT:
		want = device.StatusOn
		if parent.Type == device.TypeValve {
			want = device.StatusOpen
		}
	case level >= maxT:
		want = device.StatusOff
		if parent.Type == device.TypeValve {
			want = device.StatusClose
		}
	default:
		return noOpResult(fmt.Sprintf("tank level %d between thresholds %d-%d", level, minT, maxT)), nil
	}

	switch parent.Type {
	case device.TypePump:
		parentStatus, err := e.status.Get(ctx, d.OrgID, parent.ID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return e.handlePump(ctx, parent, parentStatus, want, actor)
	case device.TypeValve:
		parentStatus, err := e.status.Get(ctx, d.OrgID, parent.ID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return e.handleValve(ctx, parent, parentStatus, mode, want, actor)
	default:
		return noOpResult(fmt.Sprintf("tank parent %s is a %s, nothing to drive", parent.ID, parent.Type)), nil
	}
}
