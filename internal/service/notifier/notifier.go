package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"InvestCore/internal/domain/models"
	pkghttp "InvestCore/pkg/http"
	applogger "InvestCore/pkg/logger"
)

// HTTPDispatcher delivers notifications to the external dispatcher service
// over HTTP. Transient failures are retried with exponential backoff.
type HTTPDispatcher struct {
	client     *pkghttp.Client
	url        string
	maxRetries uint64
	logger     *applogger.Logger
}

func NewHTTPDispatcher(url string, timeout time.Duration, maxRetries int, logger *applogger.Logger) *HTTPDispatcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPDispatcher{
		client:     pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		url:        url,
		maxRetries: uint64(maxRetries),
		logger:     logger.With("notifier"),
	}
}

// Dispatch posts the notification payload, retrying until ctx expires or
// the attempts run out.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	attempt := 0
	op := func() error {
		attempt++
		if err := d.client.PostJSON(ctx, d.url, n, nil); err != nil {
			d.logger.Warn("dispatch attempt failed",
				applogger.String("instrument", n.Instrument),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("dispatch notification: %w", err)
	}
	return nil
}
