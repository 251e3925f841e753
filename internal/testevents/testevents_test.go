package testevents

import (
	"bytes"
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/sitelog/internal/adapters/http/api"
	"github.com/okian/sitelog/internal/adapters/repository"
	"github.com/okian/sitelog/internal/collector"
	"github.com/okian/sitelog/internal/domain/model"
	"github.com/okian/sitelog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestUsage(t *testing.T) {
	Convey("Given the simulator flag set", t, func() {
		var out bytes.Buffer
		fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
		fs.SetOutput(&out)
		fs.Int("sessions", 10, "visitor sessions to replay")
		fs.Usage = Usage(fs)

		Convey("When help is requested", func() {
			err := fs.Parse([]string{"-h"})

			Convey("Then the synopsis and the registered flags are printed", func() {
				So(err, ShouldEqual, flag.ErrHelp)
				So(out.String(), ShouldStartWith, "usage: simulate [flags]")
				So(out.String(), ShouldContainSubstring, "-sessions int")
				So(out.String(), ShouldContainSubstring, "visitor sessions to replay (default 10)")
			})
		})
	})
}

func TestOpenLog(t *testing.T) {
	Convey("Given a log file path", t, func() {
		path := filepath.Join(t.TempDir(), "sim.log")
		closer, got, err := OpenLog(path, false)
		So(err, ShouldBeNil)
		Reset(func() {
			_ = logger.Init()
		})

		Convey("Then log lines land in the file", func() {
			So(got, ShouldEqual, path)
			logger.Get().Info(context.Background(), "sim started")
			So(closer.Close(), ShouldBeNil)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "sim started")
		})
	})
}

func TestSessionHits(t *testing.T) {
	Convey("Given a session simulation", t, func() {
		cfg := &Config{Sites: []string{"a.com"}, PixelRatio: 0}
		hits := sessionHits(cfg, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		Convey("Then it ends with a batch followed by a page exit", func() {
			So(len(hits), ShouldBeGreaterThanOrEqualTo, 3)
			So(hits[len(hits)-2].Payload["eventType"], ShouldEqual, model.TypeBatch)
			So(hits[len(hits)-1].Payload["eventType"], ShouldEqual, model.TypePageExit)
		})

		Convey("Then every POST targets the configured site", func() {
			for _, h := range hits {
				So(h.Method, ShouldEqual, http.MethodPost)
				So(h.Payload["siteId"], ShouldEqual, "a.com")
			}
		})
	})

	Convey("Given a pixel ratio of one", t, func() {
		cfg := &Config{Sites: []string{"a.com"}, PixelRatio: 1}
		hits := sessionHits(cfg, time.Now())
		So(hits[0].Method, ShouldEqual, http.MethodGet)
		So(hits[0].Query["url"], ShouldStartWith, "https://a.com/")
	})
}

func TestRunAgainstCollector(t *testing.T) {
	Convey("Given a collector served over HTTP", t, func() {
		c := collector.New(repository.NewMemoryStore())
		mux := http.NewServeMux()
		api.NewServer(c, c).Register(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		out := filepath.Join(t.TempDir(), "hits.json")
		cfg := &Config{
			BaseURL:    srv.URL,
			Sessions:   5,
			Sites:      []string{"a.com", "b.com"},
			PixelRatio: 0.5,
			Workers:    3,
			Timeout:    5 * time.Second,
			OutputFile: out,
		}

		Convey("When the simulation runs", func() {
			err := Run(context.Background(), cfg)

			Convey("Then every acknowledged hit was stored and the hits were saved", func() {
				So(err, ShouldBeNil)
				stats := c.GetStats()
				So(stats["store_failures"], ShouldEqual, int64(0))
				So(stats["records_stored"], ShouldBeGreaterThanOrEqualTo, int64(15))
				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
			})
		})
	})
}
