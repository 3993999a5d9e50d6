package device

import "fmt"

// Threshold bounds (fill percentages).
const (
	minThresholdPercent = 0
	maxThresholdPercent = 100
)

// Validate checks the device's own fields: type, name, thresholds, and the
// structural parent rules that do not need a catalog lookup. Hierarchy rules
// that depend on the parent's type are checked by ValidateParent.
func (d *Device) Validate() error {
	if _, err := ParseDeviceType(string(d.Type)); err != nil {
		return err
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}

	switch d.Type {
	case TypeSump:
		if d.HasParent() {
			return fmt.Errorf("%w: sump cannot have a parent", ErrInvalidHierarchy)
		}
	case TypeValve:
		if !d.HasParent() {
			return fmt.Errorf("%w: valve requires a pump parent", ErrInvalidHierarchy)
		}
	case TypePump, TypeTank:
		// Parent optional. A pump without a parent draws from an
		// external source; a tank without a parent is monitor-only.
	}

	return d.validateThresholds()
}

// validateThresholds checks that thresholds, when set, are sane percentages
// with min strictly below max. A device may set neither (system defaults
// apply) or both; setting only one is rejected.
func (d *Device) validateThresholds() error {
	if d.MinThreshold == nil && d.MaxThreshold == nil {
		return nil
	}
	if d.MinThreshold == nil || d.MaxThreshold == nil {
		return fmt.Errorf("%w: min and max must be set together", ErrInvalidThresholds)
	}

	minT, maxT := *d.MinThreshold, *d.MaxThreshold
	if minT < minThresholdPercent || maxT > maxThresholdPercent {
		return fmt.Errorf("%w: thresholds must be within %d-%d",
			ErrInvalidThresholds, minThresholdPercent, maxThresholdPercent)
	}
	if minT >= maxT {
		return fmt.Errorf("%w: min (%d) must be below max (%d)", ErrInvalidThresholds, minT, maxT)
	}
	return nil
}

// ValidateParent checks the hierarchy rule for this device against its
// resolved parent record. Pass nil when the device has no parent.
//
// Rules:
//   - SUMP: no parent (roots of the forest)
//   - PUMP: parent is a SUMP, or absent (external source)
//   - VALVE: parent is a PUMP, always
//   - TANK: parent is a PUMP or a VALVE, or absent
func (d *Device) ValidateParent(parent *Device) error {
	if parent == nil {
		if d.Type == TypeValve {
			return fmt.Errorf("%w: valve %s is not connected to a pump", ErrInvalidHierarchy, d.ID)
		}
		if d.HasParent() {
			return fmt.Errorf("%w: parent %s of %s not found", ErrInvalidHierarchy, *d.ParentID, d.ID)
		}
		return nil
	}

	switch d.Type {
	case TypeSump:
		return fmt.Errorf("%w: sump cannot have a parent", ErrInvalidHierarchy)
	case TypePump:
		if parent.Type != TypeSump {
			return fmt.Errorf("%w: pump parent must be a sump, got %s", ErrInvalidHierarchy, parent.Type)
		}
	case TypeValve:
		if parent.Type != TypePump {
			return fmt.Errorf("%w: valve parent must be a pump, got %s", ErrInvalidHierarchy, parent.Type)
		}
	case TypeTank:
		if parent.Type != TypePump && parent.Type != TypeValve {
			return fmt.Errorf("%w: tank parent must be a pump or valve, got %s", ErrInvalidHierarchy, parent.Type)
		}
	}
	return nil
}
