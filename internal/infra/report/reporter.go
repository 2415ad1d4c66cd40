// Package report is the boundary to the external error-tracking collaborator.
// Reports carry the operation name and relevant identifiers only; message
// content and credentials never leave the process through this path.
package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type Reporter interface {
	Error(op string, err error, tags map[string]string)
	Flush(timeout time.Duration)
}

type sentryReporter struct{}

// NewSentry initializes the sentry client and returns a Reporter over it.
func NewSentry(dsn, env string) (Reporter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sentry dsn is required")
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	return sentryReporter{}, nil
}

func (sentryReporter) Error(op string, err error, tags map[string]string) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", op)
		for key, value := range tags {
			scope.SetTag(key, value)
		}
		sentry.CaptureException(err)
	})
}

func (sentryReporter) Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

type nopReporter struct{}

// Nop returns a reporter that discards everything. Used in tests and when no
// DSN is configured.
func Nop() Reporter {
	return nopReporter{}
}

func (nopReporter) Error(string, error, map[string]string) {}

func (nopReporter) Flush(time.Duration) {}
