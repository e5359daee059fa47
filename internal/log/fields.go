package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldUserID      = "user_id"
	FieldEmail       = "email"
	FieldKey         = "key"
	FieldTxID        = "transaction_id"
	FieldTxType      = "transaction_type"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldCategoryID  = "category_id"
	FieldCount       = "count"
	FieldEventType   = "event_type"
	FieldBackend     = "backend"
	FieldSheetsRef   = "sheets_ref"
	FieldFound       = "found"
	FieldPeriodStart = "period_start"
	FieldPeriodEnd   = "period_end"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentSession = "session"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentCache   = "cache"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpRegister      = "register"
	OpLogin         = "login"
	OpLogout        = "logout"
	OpUpdateProfile = "update_profile"
	OpLoad          = "load"
	OpSeed          = "seed"
	OpCreate        = "create"
	OpUpdate        = "update"
	OpDelete        = "delete"
	OpPublish       = "publish"
	OpAppend        = "append"
	OpStartup       = "startup"
	OpShutdown      = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeSession       = "session_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(id string) LogFields {
	f[FieldUserID] = id
	return f
}

// WithError adds the error message; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, typ, amount, category string) LogFields {
	f[FieldTxID] = id
	f[FieldTxType] = typ
	f[FieldAmount] = amount
	f[FieldCategory] = category
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
