package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"InvestCore/internal/domain/models"
	applogger "InvestCore/pkg/logger"
)

// Registry owns the active-bundle reference per instrument. Readers take an
// atomic snapshot; Publish is a single pointer swap, never a field update,
// so a concurrent reader sees either the fully-old or fully-new bundle.
type Registry struct {
	mu      sync.Mutex // guards slot creation only
	slots   map[string]*atomic.Pointer[models.ModelBundle]
	logger  *applogger.Logger
	persist *artifactStore
}

// Option configures Registry.
type Option func(*Registry)

// WithArtifacts enables JSON bundle snapshots under dir, saved on publish
// and loadable at startup.
func WithArtifacts(dir string) Option {
	return func(r *Registry) {
		r.persist = &artifactStore{dir: dir}
	}
}

// New creates an empty registry.
func New(logger *applogger.Logger, opts ...Option) *Registry {
	r := &Registry{
		slots:  make(map[string]*atomic.Pointer[models.ModelBundle]),
		logger: logger.With("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetActive returns the active bundle snapshot for the instrument, or
// ErrModelUnavailable if none was ever published.
func (r *Registry) GetActive(instrument string) (*models.ModelBundle, error) {
	slot := r.lookup(instrument)
	if slot == nil {
		return nil, fmt.Errorf("%w: no bundle loaded for %s", models.ErrModelUnavailable, instrument)
	}
	b := slot.Load()
	if b == nil {
		return nil, fmt.Errorf("%w: no bundle loaded for %s", models.ErrModelUnavailable, instrument)
	}
	return b, nil
}

// Version returns the active bundle version, 0 when none is loaded.
func (r *Registry) Version(instrument string) int {
	b, err := r.GetActive(instrument)
	if err != nil {
		return 0
	}
	return b.Version
}

// Publish atomically replaces the active bundle for the instrument. The
// bundle must never be mutated after this call.
func (r *Registry) Publish(instrument string, bundle *models.ModelBundle) error {
	if bundle == nil {
		return fmt.Errorf("publish: nil bundle for %s", instrument)
	}
	if bundle.Instrument != instrument {
		return fmt.Errorf("publish: bundle instrument %s does not match %s", bundle.Instrument, instrument)
	}
	if bundle.Scaler == nil || bundle.Volatility == nil || bundle.Direction == nil {
		return fmt.Errorf("publish: incomplete bundle for %s", instrument)
	}

	r.slot(instrument).Store(bundle)
	r.logger.Info("bundle published",
		applogger.String("instrument", instrument),
		applogger.Int("version", bundle.Version),
		applogger.Int("samples", bundle.Samples),
	)

	if r.persist != nil {
		if err := r.persist.save(bundle); err != nil {
			// snapshot is a warm-restart convenience, serving already switched
			r.logger.Warn("artifact save failed",
				applogger.String("instrument", instrument),
				applogger.Error(err),
			)
		}
	}
	return nil
}

// LoadArtifacts restores saved bundle snapshots for the given instruments.
// Missing snapshots are skipped.
func (r *Registry) LoadArtifacts(instruments []string) error {
	if r.persist == nil {
		return nil
	}
	for _, instrument := range instruments {
		b, err := r.persist.load(instrument)
		if err != nil {
			return fmt.Errorf("load artifact %s: %w", instrument, err)
		}
		if b == nil {
			continue
		}
		r.slot(instrument).Store(b)
		r.logger.Info("bundle restored from artifact",
			applogger.String("instrument", instrument),
			applogger.Int("version", b.Version),
		)
	}
	return nil
}

func (r *Registry) lookup(instrument string) *atomic.Pointer[models.ModelBundle] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[instrument]
}

func (r *Registry) slot(instrument string) *atomic.Pointer[models.ModelBundle] {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[instrument]
	if !ok {
		s = &atomic.Pointer[models.ModelBundle]{}
		r.slots[instrument] = s
	}
	return s
}
