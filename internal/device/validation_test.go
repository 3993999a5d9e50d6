package device

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestDeviceValidate(t *testing.T) {
	tests := []struct {
		name    string
		device  Device
		wantErr error
	}{
		{
			name:   "valid sump",
			device: Device{ID: "s1", OrgID: "org", Name: "Main Sump", Type: TypeSump},
		},
		{
			name:    "sump with parent rejected",
			device:  Device{ID: "s1", OrgID: "org", Name: "Sump", Type: TypeSump, ParentID: strPtr("p1")},
			wantErr: ErrInvalidHierarchy,
		},
		{
			name:   "pump without parent allowed",
			device: Device{ID: "p1", OrgID: "org", Name: "Borewell Pump", Type: TypePump},
		},
		{
			name:    "valve without parent rejected",
			device:  Device{ID: "v1", OrgID: "org", Name: "Valve", Type: TypeValve},
			wantErr: ErrInvalidHierarchy,
		},
		{
			name:   "tank without parent allowed",
			device: Device{ID: "t1", OrgID: "org", Name: "Overhead Tank", Type: TypeTank},
		},
		{
			name:    "unknown type rejected",
			device:  Device{ID: "x1", OrgID: "org", Name: "X", Type: "sprinkler"},
			wantErr: ErrInvalidDeviceType,
		},
		{
			name:    "empty name rejected",
			device:  Device{ID: "t1", OrgID: "org", Type: TypeTank},
			wantErr: ErrInvalidName,
		},
		{
			name: "valid thresholds",
			device: Device{
				ID: "t1", OrgID: "org", Name: "Tank", Type: TypeTank,
				MinThreshold: intPtr(20), MaxThreshold: intPtr(80),
			},
		},
		{
			name: "min equal to max rejected",
			device: Device{
				ID: "t1", OrgID: "org", Name: "Tank", Type: TypeTank,
				MinThreshold: intPtr(50), MaxThreshold: intPtr(50),
			},
			wantErr: ErrInvalidThresholds,
		},
		{
			name: "only min set rejected",
			device: Device{
				ID: "t1", OrgID: "org", Name: "Tank", Type: TypeTank,
				MinThreshold: intPtr(20),
			},
			wantErr: ErrInvalidThresholds,
		},
		{
			name: "max above 100 rejected",
			device: Device{
				ID: "t1", OrgID: "org", Name: "Tank", Type: TypeTank,
				MinThreshold: intPtr(20), MaxThreshold: intPtr(120),
			},
			wantErr: ErrInvalidThresholds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.device.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeviceValidateParent(t *testing.T) {
	sump := &Device{ID: "s1", Type: TypeSump}
	pump := &Device{ID: "p1", Type: TypePump}
	valve := &Device{ID: "v1", Type: TypeValve}
	tank := &Device{ID: "t1", Type: TypeTank}

	tests := []struct {
		name    string
		device  Device
		parent  *Device
		wantErr bool
	}{
		{"pump under sump", Device{ID: "p1", Type: TypePump, ParentID: strPtr("s1")}, sump, false},
		{"pump under pump rejected", Device{ID: "p2", Type: TypePump, ParentID: strPtr("p1")}, pump, true},
		{"valve under pump", Device{ID: "v1", Type: TypeValve, ParentID: strPtr("p1")}, pump, false},
		{"valve under sump rejected", Device{ID: "v1", Type: TypeValve, ParentID: strPtr("s1")}, sump, true},
		{"valve with missing parent rejected", Device{ID: "v1", Type: TypeValve, ParentID: strPtr("ghost")}, nil, true},
		{"tank under pump", Device{ID: "t1", Type: TypeTank, ParentID: strPtr("p1")}, pump, false},
		{"tank under valve", Device{ID: "t1", Type: TypeTank, ParentID: strPtr("v1")}, valve, false},
		{"tank under tank rejected", Device{ID: "t2", Type: TypeTank, ParentID: strPtr("t1")}, tank, true},
		{"sump with any parent rejected", Device{ID: "s2", Type: TypeSump, ParentID: strPtr("p1")}, pump, true},
		{"pump without parent ok", Device{ID: "p1", Type: TypePump}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.device.ValidateParent(tt.parent)
			if tt.wantErr && !errors.Is(err, ErrInvalidHierarchy) {
				t.Fatalf("ValidateParent() = %v, want ErrInvalidHierarchy", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("ValidateParent() = %v, want nil", err)
			}
		})
	}
}

func TestParseDeviceType(t *testing.T) {
	for _, valid := range []string{"sump", "pump", "valve", "tank"} {
		if _, err := ParseDeviceType(valid); err != nil {
			t.Errorf("ParseDeviceType(%q) = %v, want nil", valid, err)
		}
	}
	if _, err := ParseDeviceType("SUMP"); err == nil {
		t.Error("ParseDeviceType is case sensitive; uppercase should be rejected")
	}
	if _, err := ParseDeviceType(""); err == nil {
		t.Error("ParseDeviceType(\"\") should be rejected")
	}
}
