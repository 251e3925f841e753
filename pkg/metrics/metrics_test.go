package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"environment": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.eventsIngested.WithLabelValues("single").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(families[0].GetName(), ShouldStartWith, "test_unit_")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the process-wide manager", t, func() {
		m := Configure(WithConstLabels(map[string]string{"environment": "test"}))

		Convey("When recording ingestion metrics", func() {
			RecordEventIngested("single")
			RecordEventIngested("single")
			RecordEventIngested("batch")
			RecordIngestFailure("single")
			RecordStorePutLatency(3)

			Convey("Then counters reflect the calls", func() {
				So(testutil.ToFloat64(m.eventsIngested.WithLabelValues("single")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.eventsIngested.WithLabelValues("batch")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.ingestFailures.WithLabelValues("single")), ShouldEqual, 1)
			})
		})

		Convey("When recording archive metrics", func() {
			RecordArchiveRun("archived")
			RecordArchiveFile(5)
			RecordArchiveFile(2)
			RecordArchiveSiteError()
			RecordScanPage()
			RecordArchiveDuration(120)

			Convey("Then counters reflect the calls", func() {
				So(testutil.ToFloat64(m.archiveRuns.WithLabelValues("archived")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.archiveFiles), ShouldEqual, 2)
				So(testutil.ToFloat64(m.archiveRecords), ShouldEqual, 7)
				So(testutil.ToFloat64(m.archiveSiteErrors), ShouldEqual, 1)
				So(testutil.ToFloat64(m.scanPages), ShouldEqual, 1)
			})
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("collect", "POST", "200")
				RecordHTTPRequestDuration("collect", "POST", "200", 4)
			}, ShouldNotPanic)
		})

		Convey("Then the registry is the configured one", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
