package interactor

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mufasadev/grinpay/internal/domain/models"
)

const reportBackOffUnit = 10 * time.Second

// ReportBackOff is the merchant callback schedule: after failure number n
// (counting from zero) the next attempt waits 10·(n+1)² seconds. It stops
// once MaxReportAttempts failures have been recorded.
type ReportBackOff struct {
	attempt int
}

var _ backoff.BackOff = (*ReportBackOff)(nil)

// NewReportBackOff starts the schedule after attempts failures.
func NewReportBackOff(attempts int) *ReportBackOff {
	return &ReportBackOff{attempt: attempts}
}

func (b *ReportBackOff) NextBackOff() time.Duration {
	if b.attempt < 0 || b.attempt >= models.MaxReportAttempts {
		return backoff.Stop
	}
	n := time.Duration(b.attempt + 1)
	b.attempt++
	return reportBackOffUnit * n * n
}

func (b *ReportBackOff) Reset() {
	b.attempt = 0
}
