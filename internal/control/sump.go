package control

import (
	"context"
	"fmt"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

// handleSump is the sump watchdog: when the source level is at or below the
// minimum threshold, every pump drawing from this sump is stopped. Each pump
// is stopped independently; one pump's failure does not block the others.
func (e *Engine) handleSump(ctx context.Context, d *device.Device, st *device.DeviceStatus, actor string) (Result, error) {
	if st.Level == nil {
		return noOpResult("sump has no level reading"), nil
	}

	minT, _ := e.thresholds.Resolve(d)
	if *st.Level > minT {
		return noOpResult(fmt.Sprintf("sump level %d above minimum %d", *st.Level, minT)), nil
	}

	pumps, err := e.catalog.ListChildren(ctx, d.OrgID, d.ID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	off := device.StatusOff
	stopped := 0
	for i := range pumps {
		pump := &pumps[i]
		if pump.Type != device.TypePump {
			continue
		}

		pumpStatus, err := e.status.Get(ctx, d.OrgID, pump.ID)
		if err != nil {
			e.logger.Error("reading pump status during sump cutoff",
				"sump_id", d.ID, "pump_id", pump.ID, "error", err)
			continue
		}
		if pumpStatus.Status == device.StatusOff {
			continue
		}

		if _, err := e.publisher.Publish(ctx, PublishRequest{
			Device: pump,
			Status: &off,
			Actor:  actor,
		}); err != nil {
			e.logger.Error("stopping pump during sump cutoff",
				"sump_id", d.ID, "pump_id", pump.ID, "error", err)
			continue
		}
		stopped++
	}

	if stopped == 0 {
		return noOpResult("sump low, no running pumps to stop"), nil
	}
	return okResult(fmt.Sprintf("sump low, stopped %d pump(s)", stopped)), nil
}
