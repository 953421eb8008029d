package drift

import (
	"context"
	"sync"
	"time"

	domsvc "InvestCore/internal/domain/service"
	"InvestCore/internal/retrain"
	applogger "InvestCore/pkg/logger"
)

// Poller periodically asks the scorer for every instrument's drift score and
// feeds the results to the retrain trigger. It is the pull-based counterpart
// to the Kafka drift consumer, for deployments without a broker.
type Poller struct {
	scorer      domsvc.DriftScorer
	trigger     *retrain.Trigger
	instruments []string
	interval    time.Duration
	timeout     time.Duration
	logger      *applogger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(
	scorer domsvc.DriftScorer,
	trigger *retrain.Trigger,
	instruments []string,
	interval, timeout time.Duration,
	logger *applogger.Logger,
) *Poller {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Poller{
		scorer:      scorer,
		trigger:     trigger,
		instruments: instruments,
		interval:    interval,
		timeout:     timeout,
		logger:      logger.With("drift_poller"),
	}
}

func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.loop(ctx)
	p.logger.Info("drift poller started",
		applogger.Duration("interval", p.interval),
		applogger.Int("instruments", len(p.instruments)),
	)
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle scores every instrument once. A scorer failure skips that
// instrument for this cycle; the score is treated as "no signal".
func (p *Poller) cycle(ctx context.Context) {
	for _, instrument := range p.instruments {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		score, err := p.scorer.Score(callCtx, instrument)
		cancel()
		if err != nil {
			p.logger.Warn("drift poll failed",
				applogger.String("instrument", instrument),
				applogger.Error(err),
			)
			continue
		}
		if _, err := p.trigger.OnDriftScore(ctx, instrument, score); err != nil {
			p.logger.Error("drift trigger failed",
				applogger.String("instrument", instrument),
				applogger.Error(err),
			)
		}
	}
}
