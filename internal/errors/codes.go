package errors

// ErrorCode identifies a failure kind of the messaging API.
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodePoolExhausted
	CodeInvalidHandle
	CodeInvalidDestination
	CodeInvalidReceiver
	CodeInvalidMessage
	CodeInvalidOutput
	CodeQueueEmpty
	CodeInternal
	CodeInvalidInput
	CodeUnknown
)

// StatusOK and StatusFailure are the two values of the integer status
// convention used at C-style call boundaries.
const (
	StatusOK      = 0
	StatusFailure = -1
)

var codeNames = map[ErrorCode]string{
	CodeOK:                 "ok",
	CodePoolExhausted:      "pool_exhausted",
	CodeInvalidHandle:      "invalid_handle",
	CodeInvalidDestination: "invalid_destination",
	CodeInvalidReceiver:    "invalid_receiver",
	CodeInvalidMessage:     "invalid_message",
	CodeInvalidOutput:      "invalid_output",
	CodeQueueEmpty:         "queue_empty",
	CodeInternal:           "internal",
	CodeInvalidInput:       "invalid_input",
	CodeUnknown:            "unknown",
}

// String returns the snake_case name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// codeOrder lists sentinels in match order.
var codeOrder = []struct {
	sentinel error
	code     ErrorCode
}{
	{ErrPoolExhausted, CodePoolExhausted},
	{ErrInvalidHandle, CodeInvalidHandle},
	{ErrInvalidDestination, CodeInvalidDestination},
	{ErrInvalidReceiver, CodeInvalidReceiver},
	{ErrInvalidMessage, CodeInvalidMessage},
	{ErrInvalidOutput, CodeInvalidOutput},
	{ErrQueueEmpty, CodeQueueEmpty},
	{ErrInternal, CodeInternal},
	{ErrInvalidInput, CodeInvalidInput},
}

// Code maps an error onto the failure taxonomy. nil maps to CodeOK.
func Code(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	for _, c := range codeOrder {
		if Is(err, c.sentinel) {
			return c.code
		}
	}
	return CodeUnknown
}

// Status collapses an error into the integer status convention:
// StatusOK for nil and StatusFailure for everything else.
func Status(err error) int {
	if err == nil {
		return StatusOK
	}
	return StatusFailure
}
