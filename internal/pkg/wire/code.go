package wire

// ErrCode is a TFTP error code carried by an Error packet.
type ErrCode uint16

// Error codes, stable across protocol versions.
const (
	CodeNotDefined ErrCode = iota
	CodeFileNotFound
	CodeAccessViolation
	CodeDiskFull
	CodeIllegalOperation
	CodeUnknownTransferID
	CodeFileExists
	CodeNoSuchUser
)

// String implements the Stringer interface for printing ErrCode values.
func (c ErrCode) String() string {
	switch c {
	case CodeNotDefined:
		return "NOT_DEFINED"
	case CodeFileNotFound:
		return "FILE_NOT_FOUND"
	case CodeAccessViolation:
		return "ACCESS_VIOLATION"
	case CodeDiskFull:
		return "DISK_FULL"
	case CodeIllegalOperation:
		return "ILLEGAL_OPERATION"
	case CodeUnknownTransferID:
		return "UNKNOWN_TRANSFER_ID"
	case CodeFileExists:
		return "FILE_EXISTS"
	case CodeNoSuchUser:
		return "NO_SUCH_USER"
	default:
		return "INVALID"
	}
}

// Message returns the canonical human-readable text for the code.
func (c ErrCode) Message() string {
	switch c {
	case CodeNotDefined:
		return "not defined"
	case CodeFileNotFound:
		return "file not found"
	case CodeAccessViolation:
		return "access violation"
	case CodeDiskFull:
		return "disk full or allocation exceeded"
	case CodeIllegalOperation:
		return "illegal TFTP operation"
	case CodeUnknownTransferID:
		return "unknown transfer ID"
	case CodeFileExists:
		return "file already exists"
	case CodeNoSuchUser:
		return "no such user"
	default:
		return "invalid error code"
	}
}

func (c ErrCode) valid() bool {
	return c <= CodeNoSuchUser
}
