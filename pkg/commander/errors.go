package commander

// ErrorKind is the closed set of outcomes a command can have. Handlers
// report one of these upward; the commander maps it onto the wire error
// variant through the catalog below.
type ErrorKind uint8

const (
	ErrOK ErrorKind = iota
	ErrInvalidInput
	ErrMemory
	ErrGeneric
	ErrUserAbort
	ErrInvalidState
	ErrDisabled
	ErrDuplicate

	numErrorKinds
)

type catalogEntry struct {
	code    int32
	message string
}

// The catalog is fixed at build time. The array is positionally indexed
// by ErrorKind, so adding a kind without a row (or a row without a
// kind) changes the length and trips the assertion below.
var errorCatalog = [numErrorKinds]catalogEntry{
	{0, "ok"},
	{101, "invalid input"},
	{102, "memory"},
	{103, "generic error"},
	{104, "aborted by the user"},
	{105, "can't call this endpoint: wrong state"},
	{106, "function disabled"},
	{107, "duplicate entry"},
}

// Build-time completeness check: fails to compile when the catalog and
// the ErrorKind enumeration disagree in size.
var _ = errorCatalog[numErrorKinds-1]

// CodeFor returns the stable wire code for kind. Out-of-range kinds
// collapse to the generic error so a corrupted kind can never index
// past the table.
func CodeFor(kind ErrorKind) int32 {
	if kind >= numErrorKinds {
		kind = ErrGeneric
	}
	return errorCatalog[kind].code
}

// MessageFor returns the canonical message for kind.
func MessageFor(kind ErrorKind) string {
	if kind >= numErrorKinds {
		kind = ErrGeneric
	}
	return errorCatalog[kind].message
}

func (k ErrorKind) String() string {
	switch k {
	case ErrOK:
		return "ok"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrMemory:
		return "memory"
	case ErrGeneric:
		return "generic"
	case ErrUserAbort:
		return "user_abort"
	case ErrInvalidState:
		return "invalid_state"
	case ErrDisabled:
		return "disabled"
	case ErrDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}
