package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 64
	maxLoggedErrorBody = 4 << 10
)

type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// Logging writes one line per request. Error responses also carry the API
// error code, redirects their target, and renewed sessions are flagged.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := acceptRequestID(r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		recorder := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status),
			slog.Int64("duration_ms", time.Since(started).Milliseconds()),
			slog.String("client_ip", clientIPOf(r)),
		}

		switch {
		case recorder.status >= 300 && recorder.status < 400:
			if location := w.Header().Get("Location"); location != "" {
				attrs = append(attrs, slog.String("location", location))
			}
		case recorder.status >= 400:
			attrs = append(attrs, errorAttrs(r, recorder.body.Bytes())...)
		}

		if renewsSession(w.Header()) {
			attrs = append(attrs, slog.Bool("session_renewed", true))
		}

		slog.LogAttrs(context.WithoutCancel(r.Context()), levelForStatus(recorder.status), "request", attrs...)
	})
}

// acceptRequestID keeps a caller supplied id only when it is short and
// printable, so it cannot forge log lines.
func acceptRequestID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRequestIDLength {
		return uuid.NewString()
	}
	for _, c := range raw {
		if c < 0x21 || c > 0x7e {
			return uuid.NewString()
		}
	}
	return raw
}

func errorAttrs(r *http.Request, body []byte) []slog.Attr {
	var attrs []slog.Attr
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}

	var parsed errorEnvelope
	if len(body) == 0 || json.Unmarshal(body, &parsed) != nil || parsed.Error == nil {
		return attrs
	}

	attrs = append(attrs,
		slog.String("error_code", parsed.Error.Code),
		slog.String("error_message", parsed.Error.Message),
	)
	if parsed.Error.Details != "" {
		attrs = append(attrs, slog.String("error_details", parsed.Error.Details))
	}
	return attrs
}

func renewsSession(header http.Header) bool {
	for _, cookie := range header.Values("Set-Cookie") {
		if strings.HasPrefix(cookie, AccessCookieName+"=") && !strings.Contains(cookie, "Max-Age=0") {
			return true
		}
	}
	return false
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type loggingWriter struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (w *loggingWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.status = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *loggingWriter) Write(b []byte) (int, error) {
	if w.status >= 400 && w.body.Len() < maxLoggedErrorBody {
		w.body.Write(b[:min(len(b), maxLoggedErrorBody-w.body.Len())])
	}
	return w.ResponseWriter.Write(b)
}

func (w *loggingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
