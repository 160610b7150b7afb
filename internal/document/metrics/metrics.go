// Package metrics provides observability for the document pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks upload outcomes, credential issuance and review decisions.
type Metrics struct {
	Uploads           *prometheus.CounterVec
	CredentialsIssued prometheus.Counter
	Logins            *prometheus.CounterVec
	Reviews           *prometheus.CounterVec
	RecordsCompleted  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Uploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conosco_document_uploads_total",
			Help: "Document upload attempts by type and outcome",
		}, []string{"type", "result"}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conosco_credentials_issued_total",
			Help: "Total candidate credentials issued",
		}),
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conosco_candidate_logins_total",
			Help: "Candidate login attempts by outcome",
		}, []string{"result"}),
		Reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conosco_document_reviews_total",
			Help: "HR review decisions by outcome",
		}, []string{"decision"}),
		RecordsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conosco_document_records_completed_total",
			Help: "Records that reached the complete state",
		}),
	}
}

// IncrementUpload records one upload attempt.
func (m *Metrics) IncrementUpload(docType, result string) {
	m.Uploads.WithLabelValues(docType, result).Inc()
}

// IncrementLogin records one login attempt.
func (m *Metrics) IncrementLogin(result string) {
	m.Logins.WithLabelValues(result).Inc()
}

// IncrementReview records one HR review decision.
func (m *Metrics) IncrementReview(decision string) {
	m.Reviews.WithLabelValues(decision).Inc()
}
