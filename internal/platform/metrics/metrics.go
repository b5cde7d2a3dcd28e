package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	PatientsCreated prometheus.Counter

	StatusTransitions       *prometheus.CounterVec
	StatusTransitionsDenied *prometheus.CounterVec

	SSNDecrypts        *prometheus.CounterVec
	SSNDecryptsDenied  *prometheus.CounterVec
	SSNDecryptsLimited prometheus.Counter

	SurveysSubmitted prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carehub_http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and status",
		}, []string{"method", "status"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carehub_request_latency_seconds",
			Help:    "Latency of HTTP requests in seconds, labeled by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		PatientsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_patients_created_total",
			Help: "Total number of patients registered",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carehub_status_transitions_total",
			Help: "Total number of successful patient status transitions, labeled by from and to status",
		}, []string{"from", "to"}),
		StatusTransitionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carehub_status_transitions_denied_total",
			Help: "Total number of rejected patient status transitions, labeled by reason",
		}, []string{"reason"}),
		SSNDecrypts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carehub_ssn_decrypts_total",
			Help: "Total number of SSN decrypt attempts, labeled by result",
		}, []string{"result"}),
		SSNDecryptsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carehub_ssn_decrypts_denied_total",
			Help: "Total number of SSN decrypts denied by permission checks, labeled by role",
		}, []string{"role"}),
		SSNDecryptsLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_ssn_decrypts_rate_limited_total",
			Help: "Total number of SSN decrypts rejected by the per-user rate limit",
		}),
		SurveysSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carehub_surveys_submitted_total",
			Help: "Total number of public survey submissions",
		}),
	}
}

// ObserveRequest records a completed HTTP request.
func (m *Metrics) ObserveRequest(method, status, route string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, status).Inc()
	m.RequestLatency.WithLabelValues(route).Observe(durationSeconds)
}

// IncStatusTransition records a successful status transition.
func (m *Metrics) IncStatusTransition(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

// IncStatusTransitionDenied records a rejected status transition.
func (m *Metrics) IncStatusTransitionDenied(reason string) {
	m.StatusTransitionsDenied.WithLabelValues(reason).Inc()
}

// IncSSNDecrypt records a decrypt attempt outcome ("success" or "failure").
func (m *Metrics) IncSSNDecrypt(result string) {
	m.SSNDecrypts.WithLabelValues(result).Inc()
}

// IncSSNDecryptDenied records a permission-denied decrypt attempt.
func (m *Metrics) IncSSNDecryptDenied(role string) {
	m.SSNDecryptsDenied.WithLabelValues(role).Inc()
}

// IncSSNDecryptRateLimited records a rate-limited decrypt attempt.
func (m *Metrics) IncSSNDecryptRateLimited() {
	m.SSNDecryptsLimited.Inc()
}

// IncPatientCreated records a patient registration.
func (m *Metrics) IncPatientCreated() {
	m.PatientsCreated.Inc()
}

// IncSurveySubmitted records a public survey submission.
func (m *Metrics) IncSurveySubmitted() {
	m.SurveysSubmitted.Inc()
}
