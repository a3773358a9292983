package scene

import "errors"

// Registration and generation errors. Call sites wrap them with details,
// match with errors.Is.
var (
	// ErrCompatibility is returned when an object's band count or horizon
	// does not fit the scene. The object is not registered.
	ErrCompatibility = errors.New("scene: incompatible object")

	// ErrCapacity is returned when grid placement has no anchor left.
	ErrCapacity = errors.New("scene: no space left on grid")

	// ErrHorizonExhausted is returned when an object is asked for a step
	// past its available horizon.
	ErrHorizonExhausted = errors.New("scene: object horizon exhausted")

	// ErrAlreadyRegistered is returned when an object already affiliated
	// with another scene is registered again.
	ErrAlreadyRegistered = errors.New("scene: object already registered elsewhere")

	// ErrState is returned when an operation is not allowed in the scene's
	// current lifecycle state.
	ErrState = errors.New("scene: invalid state")
)
