package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	publicationsTotal      *prometheus.CounterVec
	fanoutSubmissionsTotal prometheus.Counter
	submissionsFinalized   prometheus.Counter
	answersSavedTotal      prometheus.Counter
	gradesPublishedTotal   prometheus.Counter
	scoresWrittenTotal     prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peereval_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		publicationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_publications_total",
			Help: "Assignment publication attempts by outcome.",
		}, []string{"outcome"})

		fanoutSubmissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_fanout_submissions_total",
			Help: "Submission records created by assignment fanout.",
		})

		submissionsFinalized = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_submissions_finalized_total",
			Help: "Submissions moved to the submitted state.",
		})

		answersSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_answers_saved_total",
			Help: "Answer rows upserted by draft saves and submissions.",
		})

		gradesPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_grades_published_total",
			Help: "Grade aggregation runs.",
		})

		scoresWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_scores_written_total",
			Help: "Score rows written by grade aggregation.",
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			publicationsTotal, fanoutSubmissionsTotal, submissionsFinalized,
			answersSavedTotal, gradesPublishedTotal, scoresWrittenTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Publications counts publish attempts labelled by outcome.
func Publications() *prometheus.CounterVec {
	RegisterMetrics()
	return publicationsTotal
}

// FanoutSubmissions counts submissions created at publication.
func FanoutSubmissions() prometheus.Counter {
	RegisterMetrics()
	return fanoutSubmissionsTotal
}

// SubmissionsFinalized counts finalized submissions.
func SubmissionsFinalized() prometheus.Counter {
	RegisterMetrics()
	return submissionsFinalized
}

// AnswersSaved counts upserted answer rows.
func AnswersSaved() prometheus.Counter {
	RegisterMetrics()
	return answersSavedTotal
}

// GradesPublished counts aggregation runs.
func GradesPublished() prometheus.Counter {
	RegisterMetrics()
	return gradesPublishedTotal
}

// ScoresWritten counts score rows written.
func ScoresWritten() prometheus.Counter {
	RegisterMetrics()
	return scoresWrittenTotal
}

// MetricsHandler serves the Prometheus scrape endpoint through Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
