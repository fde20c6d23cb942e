package shipping

import "errors"

// Domain errors for the shipment hierarchy.
var (
	// ErrNotFound indicates the referenced cycle, lighter or truck does not exist.
	ErrNotFound = errors.New("shipment resource not found")

	// ErrCapacityExceeded rejects a structural mutation that would load more
	// than was received at the parent level.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidNumericValue rejects negative costs and non-positive quantities.
	ErrInvalidNumericValue = errors.New("invalid numeric value")

	// ErrDependencyNotSatisfied flags a dependent truck whose lighter is not
	// LOADED yet. It is reported, never returned by a mutation.
	ErrDependencyNotSatisfied = errors.New("lighter not loaded yet")

	// ErrAlreadyAttached rejects attaching a node that belongs to another parent.
	ErrAlreadyAttached = errors.New("node already attached to another parent")

	// ErrInvalidStatus rejects a load status name that is not a known LoadStatus.
	ErrInvalidStatus = errors.New("invalid status")
)
