package httpapi

import (
	"bytes"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// loggingLineWriter logs complete NDJSON lines of one stream.
type loggingLineWriter struct {
	buf   []byte
	reqID string
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(lw.buf[:idx]); len(line) > 0 {
			if zlog != nil {
				zlog.Debug().Str("request_id", lw.reqID).Str("line", line).Msg("chat_stream>")
			} else {
				log.Printf("chat_stream> %s", line)
			}
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

var defaultLogLevel = LevelInfo

// SetRequestLogLevel sets the request log level used when a request carries
// no override: off, error, info or debug.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// requestLogger emits request start/end lines at the request's log level.
type requestLogger struct {
	lvl   LogLevel
	path  string
	reqID string
}

func newRequestLogger(r *http.Request) requestLogger {
	return requestLogger{lvl: requestLogLevel(r), path: r.URL.Path, reqID: middleware.GetReqID(r.Context())}
}

// logf logs msg when the request level is at least min. kv are key/value pairs.
func (l requestLogger) logf(min LogLevel, msg string, err error, kv ...any) {
	if l.lvl < min {
		return
	}
	if zlog == nil {
		log.Printf("%s path=%s request_id=%s err=%v %v", msg, l.path, l.reqID, err, kv)
		return
	}
	ev := zlog.Info()
	if min == LevelError {
		ev = zlog.Error()
	}
	ev = ev.Str("path", l.path).Fields(kv)
	if l.reqID != "" {
		ev = ev.Str("request_id", l.reqID)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}
