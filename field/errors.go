package field

import "errors"

var (
	// ErrInvalidConfiguration reports a parameter value outside its valid range.
	ErrInvalidConfiguration = errors.New("invalid particle configuration")

	// ErrUnknownParameter reports a key that is neither a regeneration nor a uniform key.
	ErrUnknownParameter = errors.New("unknown particle parameter")

	// ErrNotReady reports a parameter change on a field with no live buffers,
	// such as one that has been disposed.
	ErrNotReady = errors.New("particle field not ready")

	// ErrBufferAllocation reports that a new buffer set could not be allocated.
	// The previous buffer set is still live when this is returned.
	ErrBufferAllocation = errors.New("particle buffer allocation failed")
)
