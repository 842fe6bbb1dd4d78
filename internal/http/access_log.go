package httpx

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// audit records request metrics and writes one http_request log line per
// request. The line carries user_id once requireAuth has resolved a caller.
func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		next(rw, req)
		elapsed := time.Since(began)

		route := req.Pattern
		if route == "" {
			route = req.URL.Path
		}
		r.metrics.recordRequest(req.Method, route, rw.status, elapsed)

		attrs := []slog.Attr{
			slog.String("method", req.Method),
			slog.String("route", route),
			slog.String("path", req.URL.Path),
			slog.Int("status", rw.status),
			slog.Int("bytes", rw.written),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		}
		if ip := remoteIP(req); ip != "" {
			attrs = append(attrs, slog.String("ip", ip))
		}
		if fwd := forwardedFor(req); fwd != "" {
			attrs = append(attrs, slog.String("forwarded_for", fwd))
		}
		if id := strings.TrimSpace(req.Header.Get("X-Request-ID")); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if rw.userID != "" {
			attrs = append(attrs, slog.String("actor", "user"), slog.String("user_id", rw.userID))
		} else {
			attrs = append(attrs, slog.String("actor", "anonymous"))
		}
		r.logger.LogAttrs(req.Context(), levelForStatus(rw.status), "http_request", attrs...)
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// responseRecorder remembers the status and size of a response.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
	userID      string
}

func (rw *responseRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

func (rw *responseRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// remoteIP returns the socket peer address.
func remoteIP(req *http.Request) string {
	remote := strings.TrimSpace(req.RemoteAddr)
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().String()
	}
	if addr, err := netip.ParseAddr(remote); err == nil {
		return addr.String()
	}
	return ""
}

// forwardedFor returns the first X-Forwarded-For hop. The header is set by
// the client or an intermediary and is logged as a claim next to ip, never
// in place of it.
func forwardedFor(req *http.Request) string {
	xff := req.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
		return addr.String()
	}
	return ""
}
