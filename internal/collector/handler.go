package collector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/okian/sitelog/internal/domain/model"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/logger"
)

// Response bodies.
const (
	MessageReceived = "Tracking data received"
	MessageFailed   = "Failed to process tracking data"
)

const unknownIP = "unknown"

type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handle is the ingestion entry point. OPTIONS short-circuits as a
// preflight, GET is the tracking pixel fallback and every other method
// carries a JSON body. Handle never returns an error: failures become a
// 500 response with the generic error body.
func (c *Collector) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(ctx, "panic while processing tracking data", logger.Any("panic", r))
			resp, err = failure(), nil
		}
	}()

	if req.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: corsHeaders()}, nil
	}

	r := Request{
		ClientIP:  clientIP(req),
		UserAgent: header(req, "User-Agent"),
		Now:       c.clock().UTC(),
		TraceID:   traceID(ctx, req),
	}

	var ev model.Event
	if req.HTTPMethod == http.MethodGet {
		ev = model.ParseSingle(pixelPayload(req.QueryStringParameters, r))
	} else {
		ev = model.Parse(model.DecodePayload(body(req)))
	}

	if _, err := c.Collect(ctx, ev, r); err != nil {
		c.logger.Error(ctx, "error processing tracking data",
			logger.Error(err),
			logger.String("trace_id", r.TraceID))
		return failure(), nil
	}
	return success(), nil
}

// pixelPayload synthesizes an event from tracking pixel query parameters.
func pixelPayload(q map[string]string, r Request) map[string]any {
	get := func(key, def string) string {
		if v, ok := q[key]; ok {
			return v
		}
		return def
	}
	return map[string]any{
		"eventType": get("type", model.TypePageview),
		"sessionId": get("sid", model.Unknown),
		"visitorId": get("vid", model.Unknown),
		"url":       get("url", ""),
		"timestamp": record.ProcessedAt(r.Now),
		"referrer":  get("ref", ""),
		"userAgent": r.UserAgent,
		"ip":        r.ClientIP,
		"source":    get("source", ""),
		"medium":    get("medium", ""),
		"campaign":  get("campaign", ""),
	}
}

func body(req events.APIGatewayProxyRequest) []byte {
	if !req.IsBase64Encoded {
		return []byte(req.Body)
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil
	}
	return b
}

func clientIP(req events.APIGatewayProxyRequest) string {
	if ip := req.RequestContext.Identity.SourceIP; ip != "" {
		return ip
	}
	return unknownIP
}

// header looks a header up case-insensitively.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, v := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func traceID(ctx context.Context, req events.APIGatewayProxyRequest) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return req.RequestContext.RequestID
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, GET, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
}

func success() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    corsHeaders(),
		Body:       encodeBody("success", MessageReceived),
	}
}

func failure() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{"Access-Control-Allow-Origin": "*"},
		Body:       encodeBody("error", MessageFailed),
	}
}

func encodeBody(status, msg string) string {
	b, err := json.Marshal(statusBody{Status: status, Message: msg})
	if err != nil {
		return fmt.Sprintf(`{"status":%q,"message":%q}`, status, msg)
	}
	return string(b)
}
