package ssn

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Action identifies what was done with a resident registration number.
type Action string

const (
	ActionEncrypt    Action = "encrypt"
	ActionDecrypt    Action = "decrypt"
	ActionViewMasked Action = "view_masked"
	ActionLookup     Action = "lookup"
)

// AccessLog is one append-only audit record. Every decrypt attempt produces
// one, successful or denied; entries are never mutated or deleted.
type AccessLog struct {
	UserID       string
	PatientID    string
	Action       Action
	Success      bool
	ErrorMessage string
	IPAddress    string
	UserAgent    string
	OccurredAt   time.Time
}

// Recorder persists access log entries. Implementations must treat failures
// as their own problem: a recording failure never aborts the operation that
// produced the entry.
type Recorder interface {
	Record(ctx context.Context, entry AccessLog) error
}

// RecorderFunc is a function adapter for Recorder.
type RecorderFunc func(ctx context.Context, entry AccessLog) error

func (f RecorderFunc) Record(ctx context.Context, entry AccessLog) error {
	return f(ctx, entry)
}

// LogRecorder is the fallback recorder: it writes entries to the structured
// log instead of a durable store. Used in development and as the degraded
// path when no database recorder is wired.
type LogRecorder struct {
	Logger zerolog.Logger
}

func (r LogRecorder) Record(_ context.Context, entry AccessLog) error {
	evt := r.Logger.Info()
	if !entry.Success {
		evt = r.Logger.Warn()
	}
	evt.
		Str("type", "ssn_access").
		Str("user_id", entry.UserID).
		Str("patient_id", entry.PatientID).
		Str("action", string(entry.Action)).
		Bool("success", entry.Success).
		Str("error_message", entry.ErrorMessage).
		Str("remote_ip", entry.IPAddress).
		Str("user_agent", entry.UserAgent).
		Time("occurred_at", entry.OccurredAt).
		Msg("ssn_access")
	return nil
}
