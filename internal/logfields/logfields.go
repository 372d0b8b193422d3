package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTask       = "task"
	KeyTarget     = "target"
	KeyModule     = "module"
	KeyFileSet    = "fileset"
	KeyPath       = "path"
	KeyOp         = "op"
	KeyCount      = "count"
	KeySize       = "size_bytes"
	KeyClientID   = "client_id"
	KeyMessage    = "message_type"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyRequestID  = "request_id"
	KeyUserAgent  = "user_agent"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Target(name string) slog.Attr    { return slog.String(KeyTarget, name) }
func Module(id string) slog.Attr      { return slog.String(KeyModule, id) }
func FileSet(name string) slog.Attr   { return slog.String(KeyFileSet, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Size(n int64) slog.Attr          { return slog.Int64(KeySize, n) }
func ClientID(id string) slog.Attr    { return slog.String(KeyClientID, id) }
func Message(t string) slog.Attr      { return slog.String(KeyMessage, t) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
