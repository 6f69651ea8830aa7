package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldPersonID    = "person_id"
	FieldPeriodID    = "period_id"
	FieldExceptionID = "exception_id"
	FieldParentID    = "parent_id"
	FieldChildID     = "child_id"
	FieldAmount      = "amount"
	FieldStartDate   = "start_date"
	FieldEndDate     = "end_date"
	FieldCategory    = "category"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentPeriod    = "period"
	ComponentReconcile = "reconcile"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
)

// Operations defines standard operation names
const (
	OpStartPeriod     = "start_period"
	OpEndPeriod       = "end_period"
	OpAddException    = "add_exception"
	OpRemoveException = "remove_exception"
	OpTotals          = "totals"
	OpLink            = "link"
	OpUnlink          = "unlink"
	OpStartup         = "startup"
	OpShutdown        = "shutdown"
)
