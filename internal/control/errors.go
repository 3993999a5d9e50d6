package control

import "errors"

// Infrastructure errors for the control package. Business refusals are
// Result values, not errors; these cover faults that abort the operation.
var (
	// ErrStoreUnavailable is returned when a status store read or write fails.
	ErrStoreUnavailable = errors.New("control: status store unavailable")

	// ErrCatalogUnavailable is returned when a catalog lookup fails for a
	// reason other than the record being absent.
	ErrCatalogUnavailable = errors.New("control: catalog unavailable")
)
