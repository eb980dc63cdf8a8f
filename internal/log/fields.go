package log

import "billed/internal/core"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldBillID     = "bill_id"
	FieldEmail      = "email"
	FieldFileName   = "file_name"
	FieldFileURL    = "file_url"
	FieldBillStatus = "bill_status"
	FieldAmount     = "amount"
	FieldDate       = "date"
	FieldCount      = "count"
	FieldSheetsRef  = "sheets_ref"
)

// Component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentSubmission = "submission"
	ComponentListing    = "listing"
	ComponentBills      = "bills"
	ComponentSession    = "session"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentCache      = "cache"
	ComponentRateLimit  = "rate_limit"
	ComponentBackend    = "backend"
	ComponentTemplate   = "template"
)

// Operation names
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpList    = "list"
	OpUpload  = "upload"
	OpPreview = "preview"
	OpAppend  = "append"
	OpPublish = "publish"
)

// LogFields builds structured attributes
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithBill adds the identifying fields of a bill. File fields are logged
// only once the upload has filled them in.
func (f LogFields) WithBill(b core.Bill) LogFields {
	if b.ID != "" {
		f[FieldBillID] = b.ID
	}
	f[FieldEmail] = b.Email
	f[FieldAmount] = b.Amount
	f[FieldDate] = b.Date
	f[FieldBillStatus] = string(b.Status)
	if b.FileName != nil {
		f[FieldFileName] = *b.FileName
	}
	return f
}

// ToSlice flattens the fields for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
