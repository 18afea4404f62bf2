package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultEndpoint = "0.0.0.0:9090"
)

var (
	DevicesProcessed *prometheus.CounterVec

	ConnectionRetries prometheus.Counter

	ComponentUpdates *prometheus.CounterVec

	CampaignRunTimeSummary *prometheus.SummaryVec

	ScriptsAnalyzed *prometheus.CounterVec

	RunsArchived prometheus.Counter
)

func init() {
	DevicesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsweep_devices_processed",
			Help: "A counter metric to measure devices reaching a terminal status, per status",
		},
		[]string{"status"},
	)

	ConnectionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsweep_connection_retries",
			Help: "A counter metric to measure the total count of device connection retry attempts",
		},
	)

	ComponentUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsweep_component_updates",
			Help: "A counter metric to measure the sum of component updates applied, successful and failed",
		},
		[]string{"component", "state"},
	)

	CampaignRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "fleetsweep_campaign_duration_seconds",
			Help: "A summary metric to measure the total time spent in completing each campaign",
		},
		[]string{"state"},
	)

	ScriptsAnalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsweep_scripts_analyzed",
			Help: "A counter metric to measure scripts reviewed by the safety analyzer, per risk level",
		},
		[]string{"risk"},
	)

	RunsArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsweep_runs_archived",
			Help: "A counter metric to measure deployment runs written to the archive",
		},
	)
}

// ListenAndServe exposes prometheus metrics as /metrics
func ListenAndServe(endpoint string) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              endpoint,
			Handler:           mux,
			ReadHeaderTimeout: 2 * time.Second, // nolint:gomnd // time duration value is clear as is.
		}

		if err := server.ListenAndServe(); err != nil {
			log.Println(err)
		}
	}()
}
