package control

import (
	"testing"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

func intPtr(n int) *int { return &n }

func TestThresholdPolicyResolve(t *testing.T) {
	policy := ThresholdPolicy{DefaultMin: 25, DefaultMax: 75}

	tests := []struct {
		name    string
		device  *device.Device
		wantMin int
		wantMax int
	}{
		{
			name:    "both set and ordered uses device values",
			device:  &device.Device{MinThreshold: intPtr(10), MaxThreshold: intPtr(90)},
			wantMin: 10, wantMax: 90,
		},
		{
			name:    "neither set falls back to defaults",
			device:  &device.Device{},
			wantMin: 25, wantMax: 75,
		},
		{
			name:    "only min set falls back to defaults",
			device:  &device.Device{MinThreshold: intPtr(10)},
			wantMin: 25, wantMax: 75,
		},
		{
			name:    "min equal to max falls back to defaults",
			device:  &device.Device{MinThreshold: intPtr(50), MaxThreshold: intPtr(50)},
			wantMin: 25, wantMax: 75,
		},
		{
			name:    "min above max falls back to defaults",
			device:  &device.Device{MinThreshold: intPtr(80), MaxThreshold: intPtr(20)},
			wantMin: 25, wantMax: 75,
		},
		{
			name:    "nil device falls back to defaults",
			device:  nil,
			wantMin: 25, wantMax: 75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minT, maxT := policy.Resolve(tt.device)
			if minT != tt.wantMin || maxT != tt.wantMax {
				t.Errorf("Resolve() = (%d, %d), want (%d, %d)", minT, maxT, tt.wantMin, tt.wantMax)
			}
		})
	}
}
