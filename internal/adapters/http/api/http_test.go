package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/aws/aws-lambda-go/events"
	"github.com/okian/sitelog/internal/adapters/http/api"
	"github.com/okian/sitelog/internal/collector"
	. "github.com/smartystreets/goconvey/convey"
)

type mockCollector struct {
	mu   sync.Mutex
	reqs []events.APIGatewayProxyRequest
	resp events.APIGatewayProxyResponse
	err  error
}

func (m *mockCollector) Handle(_ context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return m.resp, m.err
}

func (m *mockCollector) last() events.APIGatewayProxyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reqs[len(m.reqs)-1]
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any {
	return map[string]any{"records_stored": 3}
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func newMux(c api.Collector, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(c, mockStats{}, opts...).Register(mux)
	return mux
}

func TestCollectRoute(t *testing.T) {
	Convey("Given a server backed by a collector", t, func() {
		c := &mockCollector{resp: events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    map[string]string{"Access-Control-Allow-Origin": "*"},
			Body:       `{"status":"success","message":"Tracking data received"}`,
		}}
		mux := newMux(c, api.WithRequestID(func() string { return "req-fixed" }))

		Convey("When a POST arrives through a proxy", func() {
			req := httptest.NewRequest(http.MethodPost, "/collect?debug=1", strings.NewReader(`{"siteId":"a.com"}`))
			req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
			req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the proxy request carries method, body, client ip and request id", func() {
				got := c.last()
				So(got.HTTPMethod, ShouldEqual, http.MethodPost)
				So(got.Body, ShouldEqual, `{"siteId":"a.com"}`)
				So(got.RequestContext.Identity.SourceIP, ShouldEqual, "203.0.113.9")
				So(got.RequestContext.RequestID, ShouldEqual, "req-fixed")
				So(got.Headers["User-Agent"], ShouldEqual, "Mozilla/5.0 (iPhone)")
				So(got.QueryStringParameters["debug"], ShouldEqual, "1")
			})

			Convey("Then the collector response is written back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
				So(rec.Header().Get("X-Request-Id"), ShouldEqual, "req-fixed")
				var body map[string]string
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "success")
			})
		})

		Convey("When the client supplies its own request id and no proxy headers", func() {
			req := httptest.NewRequest(http.MethodGet, "/collect?sid=s1&url=https://a.com/", nil)
			req.Header.Set("X-Request-Id", "client-id")
			req.RemoteAddr = "198.51.100.7:5555"
			mux.ServeHTTP(httptest.NewRecorder(), req)

			got := c.last()
			So(got.RequestContext.RequestID, ShouldEqual, "client-id")
			So(got.RequestContext.Identity.SourceIP, ShouldEqual, "198.51.100.7")
			So(got.QueryStringParameters["url"], ShouldEqual, "https://a.com/")
		})

		Convey("When X-Real-Ip is present", func() {
			req := httptest.NewRequest(http.MethodGet, "/collect", nil)
			req.Header.Set("X-Real-Ip", "192.0.2.4")
			mux.ServeHTTP(httptest.NewRecorder(), req)
			So(c.last().RequestContext.Identity.SourceIP, ShouldEqual, "192.0.2.4")
		})

		Convey("When the body exceeds the cap", func() {
			small := newMux(c, api.WithMaxBodyBytes(8))
			req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(strings.Repeat("x", 64)))
			rec := httptest.NewRecorder()
			small.ServeHTTP(rec, req)

			Convey("Then the generic error body is returned with the cross-origin header", func() {
				So(rec.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
				So(decodeBody(rec), ShouldResemble, map[string]string{"status": "error", "message": collector.MessageFailed})
			})
		})

		Convey("When the body cannot be read", func() {
			req := httptest.NewRequest(http.MethodPost, "/collect", iotest.ErrReader(errors.New("reset")))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			So(decodeBody(rec)["message"], ShouldEqual, collector.MessageFailed)
		})

		Convey("When the collector returns an error", func() {
			c.err = errors.New("boom")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader("{}")))
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			So(decodeBody(rec), ShouldResemble, map[string]string{"status": "error", "message": collector.MessageFailed})
		})
	})
}

func TestCollectRouteGeneratesULIDs(t *testing.T) {
	c := &mockCollector{resp: events.APIGatewayProxyResponse{StatusCode: http.StatusOK}}
	mux := newMux(c)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/collect", nil))
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/collect", nil))

	first, second := c.reqs[0].RequestContext.RequestID, c.reqs[1].RequestContext.RequestID
	if len(first) != 26 || len(second) != 26 {
		t.Fatalf("expected ulid request ids, got %q and %q", first, second)
	}
	if first == second {
		t.Fatal("request ids should be unique")
	}
}

func TestHealthStatsAndMetrics(t *testing.T) {
	Convey("Given a server", t, func() {
		mux := newMux(&mockCollector{})

		Convey("GET /healthz reports ok", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("POST /healthz is not found", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("GET /stats returns the provider's map", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["records_stored"], ShouldEqual, 3.0)
		})

		Convey("GET /metrics exposes recorded http requests", func() {
			mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "healthz")
		})
	})
}
