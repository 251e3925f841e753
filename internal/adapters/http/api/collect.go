package api

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/okian/sitelog/internal/collector"
	"github.com/oklog/ulid/v2"
)

const requestIDHeader = "X-Request-Id"

// CollectHandler adapts net/http requests to the collector.
type CollectHandler struct {
	collector    Collector
	maxBodyBytes int64
	newRequestID func() string
}

// NewCollectHandler creates a collect handler.
func NewCollectHandler(c Collector, opts ...Option) *CollectHandler {
	h := &CollectHandler{
		collector:    c,
		maxBodyBytes: DefaultMaxBodyBytes,
		newRequestID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleCollect handles /collect for every method.
func (h *CollectHandler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = h.newRequestID()
	}
	w.Header().Set(requestIDHeader, reqID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		status := http.StatusInternalServerError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeFailure(w, status)
		return
	}

	resp, err := h.collector.Handle(r.Context(), proxyRequest(r, body, reqID))
	if err != nil {
		writeFailure(w, http.StatusInternalServerError)
		return
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.Body != "" && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

// writeFailure answers with the collector's generic error body and the
// cross-origin header every collect response carries.
func writeFailure(w http.ResponseWriter, status int) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, status, map[string]string{"status": "error", "message": collector.MessageFailed})
}

func proxyRequest(r *http.Request, body []byte, reqID string) events.APIGatewayProxyRequest {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	query := r.URL.Query()
	params := make(map[string]string, len(query))
	for k, v := range query {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return events.APIGatewayProxyRequest{
		Resource:                        r.URL.Path,
		Path:                            r.URL.Path,
		HTTPMethod:                      r.Method,
		Headers:                         headers,
		MultiValueHeaders:               r.Header,
		QueryStringParameters:           params,
		MultiValueQueryStringParameters: query,
		Body:                            string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID:  reqID,
			HTTPMethod: r.Method,
			Path:       r.URL.Path,
			Identity:   events.APIGatewayRequestIdentity{SourceIP: clientIP(r), UserAgent: r.UserAgent()},
		},
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-Ip, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
