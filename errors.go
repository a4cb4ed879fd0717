package ifccheck

import "errors"

var (
	// ErrModelUnreadable is returned when the model file cannot be read or
	// parsed. Nothing has been written to either graph when it occurs.
	ErrModelUnreadable = errors.New("ifccheck: model unreadable")

	// ErrRulesInvalid is returned when the shape set fails to compile.
	ErrRulesInvalid = errors.New("ifccheck: rule set invalid")

	// ErrStoreUnavailable is returned when the graph store cannot be reached
	// or a transaction cannot be opened. The store has not been wiped.
	ErrStoreUnavailable = errors.New("ifccheck: graph store unavailable")

	// ErrStoreWrite is returned when a write inside the rebuild transaction
	// fails. The transaction is rolled back and the prior graph kept.
	ErrStoreWrite = errors.New("ifccheck: graph store write failed")

	// ErrLLMUnavailable is returned when the suggestion provider cannot be
	// created or rejects a request (bad key, unknown model). Transient
	// unavailability during a run only degrades suggestions.
	ErrLLMUnavailable = errors.New("ifccheck: LLM provider unavailable")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("ifccheck: invalid configuration")

	// ErrOutputFailed is returned when an artifact cannot be written.
	ErrOutputFailed = errors.New("ifccheck: writing output failed")

	// ErrRunInProgress is returned when another run holds the lock.
	ErrRunInProgress = errors.New("ifccheck: another run is in progress")
)
