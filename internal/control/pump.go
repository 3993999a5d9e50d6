package control

import (
	"context"
	"fmt"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

// handlePump processes an ON/OFF request for a pump.
//
// OFF is always allowed. ON is guarded by the parent sump's level: a pump
// must not run dry. A pump with no parent draws from an external source and
// may always start.
func (e *Engine) handlePump(ctx context.Context, d *device.Device, st *device.DeviceStatus, requested, actor string) (Result, error) {
	if st.Status == requested {
		return noOpResult(fmt.Sprintf("pump %s already %s", d.ID, requested)), nil
	}

	if requested == device.StatusOff {
		return e.publishStatus(ctx, d, device.StatusOff, actor,
			fmt.Sprintf("pump %s turned OFF", d.ID))
	}

	if requested != device.StatusOn {
		return refusedResult(CodeNoOp,
			fmt.Sprintf("unsupported pump status %q", requested)), nil
	}

	// Infinite source: no sump to protect.
	if !d.HasParent() {
		return e.publishStatus(ctx, d, device.StatusOn, actor,
			fmt.Sprintf("pump %s turned ON", d.ID))
	}

	sump, err := e.catalog.GetByID(ctx, d.OrgID, *d.ParentID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	level, ok, err := e.deviceLevel(ctx, d.OrgID, sump.ID)
	if err != nil {
		return Result{}, err
	}

	minT, _ := e.thresholds.Resolve(sump)
	if !ok || level <= minT {
		return refusedResult(CodeSumpTooLow,
			fmt.Sprintf("sump %s level %d at or below minimum %d", sump.ID, level, minT)), nil
	}

	return e.publishStatus(ctx, d, device.StatusOn, actor,
		fmt.Sprintf("pump %s turned ON", d.ID))
}

// publishStatus commits a single status flag write and wraps the outcome.
func (e *Engine) publishStatus(ctx context.Context, d *device.Device, status, actor, msg string) (Result, error) {
	if _, err := e.publisher.Publish(ctx, PublishRequest{
		Device: d,
		Status: &status,
		Actor:  actor,
	}); err != nil {
		return Result{}, err
	}
	return okResult(msg), nil
}
