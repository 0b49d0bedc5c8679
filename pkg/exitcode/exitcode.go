// Package exitcode provides standardized exit codes for modelkeep
package exitcode

// Exit codes for the modelkeep CLI
const (
	Success           = 0
	GeneralError      = 1
	ConfigError       = 2
	IntegrityError    = 3
	FileSystemError   = 4
	ConflictError     = 5
	PersistenceError  = 6
	PermissionError   = 7
	TimeoutError      = 8
	UnsupportedFormat = 9
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case IntegrityError:
		return "Asset integrity error"
	case FileSystemError:
		return "File system error"
	case ConflictError:
		return "Unresolved asset conflict"
	case PersistenceError:
		return "Registry persistence error"
	case PermissionError:
		return "Permission error"
	case TimeoutError:
		return "Timeout error"
	case UnsupportedFormat:
		return "Unsupported format"
	default:
		return "Unknown error"
	}
}
