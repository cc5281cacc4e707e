package logger

import "time"

// Field keys shared by connector records.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldConnector  = "connector"
	FieldActivation = "activation_id"
	FieldEvent      = "event"
	FieldChainID    = "chain_id"
	FieldAccounts   = "accounts"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
)

// Fields pairs up alternating keys and values. A trailing key without a
// value and non-string keys are skipped.
//
//	log.Info("Chain changed", logger.Fields(logger.FieldChainID, 137))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if k, ok := kvs[i].(string); ok {
			m[k] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields tags a failed operation.
func ErrorFields(op string, err error) map[string]any {
	return Fields(FieldOperation, op, FieldError, err.Error())
}

// DurationFields tags a timed operation.
func DurationFields(op string, d time.Duration) map[string]any {
	return Fields(FieldOperation, op, FieldDuration, d.Milliseconds())
}
