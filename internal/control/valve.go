package control

import (
	"context"
	"fmt"
	"time"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

// handleValve processes an OPEN/CLOSE request for a valve. The whole
// decision runs under the parent pump's lock so concurrent requests across
// the pump's valve group cannot observe each other's stale status.
func (e *Engine) handleValve(ctx context.Context, d *device.Device, st *device.DeviceStatus, mode device.Mode, requested, actor string) (Result, error) {
	if st.Status == requested {
		return noOpResult(fmt.Sprintf("valve %s already %s", d.ID, requested)), nil
	}

	if !d.HasParent() {
		return refusedResult(CodeDeviceNotFound,
			fmt.Sprintf("valve %s is not connected to a pump", d.ID)), nil
	}

	lock := e.pumpLocks.lock(pumpLockKey(d.OrgID, *d.ParentID))
	defer lock.Unlock()

	switch requested {
	case device.StatusOpen:
		return e.openValve(ctx, d, mode, actor)
	case device.StatusClose:
		return e.closeValve(ctx, d, mode, actor)
	default:
		return refusedResult(CodeNoOp,
			fmt.Sprintf("unsupported valve status %q", requested)), nil
	}
}

// openValve opens the valve, then in auto mode makes sure water can reach
// it: the parent pump is started unless its sump is too low. Opening the
// valve itself is always allowed; only the pump cascade can be refused.
//
// Caller holds the pump lock.
func (e *Engine) openValve(ctx context.Context, d *device.Device, mode device.Mode, actor string) (Result, error) {
	open := device.StatusOpen
	if _, err := e.publisher.Publish(ctx, PublishRequest{
		Device: d,
		Status: &open,
		Actor:  actor,
	}); err != nil {
		return Result{}, err
	}

	if mode != device.ModeAuto {
		return okResult(fmt.Sprintf("valve %s opened", d.ID)), nil
	}

	pump, err := e.catalog.GetByID(ctx, d.OrgID, *d.ParentID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	pumpStatus, err := e.status.Get(ctx, d.OrgID, pump.ID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if pumpStatus.Status == device.StatusOn {
		return okResult(fmt.Sprintf("valve %s opened, pump %s already ON", d.ID, pump.ID)), nil
	}

	if pump.HasParent() {
		sump, err := e.catalog.GetByID(ctx, d.OrgID, *pump.ParentID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		level, ok, err := e.deviceLevel(ctx, d.OrgID, sump.ID)
		if err != nil {
			return Result{}, err
		}
		minT, _ := e.thresholds.Resolve(sump)
		if !ok || level <= minT {
			return Result{
				OK:      false,
				Code:    CodeSumpTooLow,
				Message: fmt.Sprintf("valve %s opened but pump %s not started: sump %s too low", d.ID, pump.ID, sump.ID),
				Mutated: true,
			}, nil
		}
	}

	on := device.StatusOn
	if _, err := e.publisher.Publish(ctx, PublishRequest{
		Device: pump,
		Status: &on,
		Actor:  actor,
	}); err != nil {
		return Result{}, err
	}
	return okResult(fmt.Sprintf("valve %s opened, pump %s turned ON", d.ID, pump.ID)), nil
}

// closeValve closes the valve unless it is the last open valve of its pump.
//
// With siblings still open the close is plain in auto mode; in manual mode
// a currently running schedule for this valve blocks it. When this is the
// last open valve, manual mode refuses outright and auto mode turns the
// pump off instead of closing the valve (the valve stops flowing once its
// pump stops; its recorded status stays OPEN).
//
// Caller holds the pump lock.
func (e *Engine) closeValve(ctx context.Context, d *device.Device, mode device.Mode, actor string) (Result, error) {
	openCount, err := e.countOpenSiblings(ctx, d)
	if err != nil {
		return Result{}, err
	}

	if openCount > 1 {
		if mode != device.ModeAuto && e.schedules != nil {
			active, err := e.schedules.ActiveFor(ctx, d.OrgID, d.BlockID, d.ID, time.Now())
			if err != nil {
				return Result{}, fmt.Errorf("checking schedule lock for valve %s: %w", d.ID, err)
			}
			if len(active) > 0 {
				res := refusedResult(CodeScheduledLock,
					fmt.Sprintf("valve %s is inside a scheduled window", d.ID))
				res.Schedules = active
				return res, nil
			}
		}
		return e.publishStatus(ctx, d, device.StatusClose, actor,
			fmt.Sprintf("valve %s closed", d.ID))
	}

	// Last open valve of this pump.
	if mode != device.ModeAuto {
		return refusedResult(CodeLastValveMan,
			fmt.Sprintf("valve %s is the last open valve of its pump; close refused in manual mode", d.ID)), nil
	}

	pump, err := e.catalog.GetByID(ctx, d.OrgID, *d.ParentID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	pumpStatus, err := e.status.Get(ctx, d.OrgID, pump.ID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if pumpStatus.Status == device.StatusOff {
		return refusedResult(CodePumpAlreadyOff,
			fmt.Sprintf("pump %s is already OFF", pump.ID)), nil
	}

	return e.publishStatus(ctx, pump, device.StatusOff, actor,
		fmt.Sprintf("last open valve of pump %s; pump turned OFF", pump.ID))
}

// countOpenSiblings counts OPEN valves sharing this valve's parent pump,
// the valve itself included when it is open.
func (e *Engine) countOpenSiblings(ctx context.Context, d *device.Device) (int, error) {
	siblings, err := e.catalog.ListChildren(ctx, d.OrgID, *d.ParentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	open := 0
	for i := range siblings {
		if siblings[i].Type != device.TypeValve {
			continue
		}
		st, err := e.status.Get(ctx, d.OrgID, siblings[i].ID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if st.Status == device.StatusOpen {
			open++
		}
	}
	return open, nil
}
