package domain

import "fmt"

// CoreError is the unified error type for the core.
// Each error has a numeric code and human-readable message.
type CoreError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	return fmt.Sprintf("core error %d: %s", e.Code, e.Message)
}

// NewCoreError creates a new CoreError.
func NewCoreError(code int, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// WrapCoreError creates a CoreError that includes a cause.
func WrapCoreError(code int, msg string, cause error) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// Is lets wrapped CoreErrors match their sentinel by code.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	return ok && t.Code == e.Code
}

// ---- Input rejection errors (-32010 to -32039) ----

var (
	ErrPayloadTooLarge  = &CoreError{Code: -32010, Message: "input exceeds byte-size ceiling"}
	ErrTooManyEntities  = &CoreError{Code: -32011, Message: "input exceeds entity-count ceiling"}
	ErrEmptyInput       = &CoreError{Code: -32012, Message: "input contains no geometry"}
	ErrUnknownUnits     = &CoreError{Code: -32013, Message: "unrecognized units tag"}
	ErrBadRequestParams = &CoreError{Code: -32014, Message: "invalid request parameters"}
)

// ---- Geometry errors (-32040 to -32069) ----

var (
	ErrDegenerateLoop  = &CoreError{Code: -32040, Message: "loop has fewer than 3 distinct points"}
	ErrZeroAreaLoop    = &CoreError{Code: -32041, Message: "loop encloses no area after cleanup"}
	ErrNonFiniteCoord  = &CoreError{Code: -32042, Message: "coordinate is not a finite number"}
	ErrNoBoundary      = &CoreError{Code: -32043, Message: "no boundary loop in input"}
	ErrIslandOutside   = &CoreError{Code: -32044, Message: "island lies outside the boundary"}
	ErrRingIntegrity   = &CoreError{Code: -32045, Message: "offset ring failed integrity check"}
	ErrUnknownStrategy = &CoreError{Code: -32046, Message: "unknown toolpath strategy"}
)

// ---- Traversal errors (-32070 to -32099) ----

var (
	ErrTraversalDepth  = &CoreError{Code: -32070, Message: "traversal exceeded maximum depth"}
	ErrTraversalBudget = &CoreError{Code: -32071, Message: "traversal exceeded iteration budget"}
)

// ---- Timeout / pool errors (-32100 to -32129) ----

var (
	ErrOperationTimeout = &CoreError{Code: -32100, Message: "operation exceeded wall-clock budget"}
	ErrPoolSaturated    = &CoreError{Code: -32101, Message: "worker pool rejected task"}
)

// ---- Store / config errors (-32130 to -32159) ----

var (
	ErrStoreInit     = &CoreError{Code: -32130, Message: "failed to initialize store"}
	ErrStoreQuery    = &CoreError{Code: -32131, Message: "store query failed"}
	ErrStoreWrite    = &CoreError{Code: -32132, Message: "store write failed"}
	ErrRunNotFound   = &CoreError{Code: -32133, Message: "run not found"}
	ErrConfigInvalid = &CoreError{Code: -32136, Message: "invalid configuration"}
)
