package composite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tooling-api/tooling-go/pkg/capability"
	"github.com/tooling-api/tooling-go/pkg/version"
	"github.com/tooling-api/tooling-go/pkg/wire"
)

// Source is one participant as seen by a Fetcher.
type Source interface {
	// Identity returns the participant's canonical identity.
	Identity() BuildIdentity

	// EngineVersion returns the participant's engine version and product
	// name (empty if unknown). It may open the engine session.
	EngineVersion(ctx context.Context) (version.EngineVersion, string, error)

	// RequestModel runs the live exchange for category.
	RequestModel(ctx context.Context, category string) (*wire.ModelResponse, error)
}

// Fetcher runs the single-participant protocol: classify the category
// against the participant's engine version, then ask the engine. Fetch
// never fails; every fault becomes a failure result.
type Fetcher struct {
	table   *capability.Table
	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration
}

// NewFetcher creates a fetcher. A nil table selects capability.Default();
// a nil logger discards; timeout 0 means no per-fetch bound.
func NewFetcher(table *capability.Table, logger *slog.Logger, metrics *Metrics, timeout time.Duration) *Fetcher {
	if table == nil {
		table = capability.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{table: table, logger: logger, metrics: metrics, timeout: timeout}
}

// Fetch returns src's model of category or a classified failure.
func (f *Fetcher) Fetch(ctx context.Context, src Source, category string) (result ModelResult) {
	id := src.Identity()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = Failed(id, &ConnectionError{Identity: id, Cause: fmt.Errorf("fetch panicked: %v", r)})
		}
		outcome := result.Outcome()
		f.metrics.observeFetch(category, outcome, time.Since(start))
		f.log(id, category, outcome, result, time.Since(start))
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	engine, product, err := src.EngineVersion(ctx)
	if err != nil {
		return Failed(id, &ConnectionError{Identity: id, Cause: err})
	}
	if engine.IsZero() {
		return Failed(id, &ConnectionError{Identity: id, Cause: errors.New("engine version unknown")})
	}
	if product == "" {
		product = f.table.Product()
	}

	cls := f.table.Classify(category, engine)
	if !cls.Proceed() {
		return Failed(id, &UnsupportedModelVersionError{
			Product:          product,
			Category:         category,
			ConnectedVersion: engine.String(),
			MinVersion:       cls.MinVersion.String(),
			RequiredVersion:  cls.Required.String(),
		})
	}

	resp, err := src.RequestModel(ctx, category)
	if err != nil {
		return Failed(id, &ConnectionError{Identity: id, Cause: err})
	}

	switch resp.Status {
	case wire.StatusSuccess:
		if len(resp.Model) == 0 {
			return Failed(id, &ModelBuildError{Category: category, Message: "engine returned an empty model"})
		}
		return Succeeded(id, NewModel(category, resp.Model))
	case wire.StatusNoBuilder:
		return Failed(id, &NoModelAvailableError{Category: category})
	case wire.StatusBuildFailed:
		return Failed(id, &ModelBuildError{Category: category, Message: resp.Message})
	default:
		return Failed(id, &ConnectionError{
			Identity: id,
			Cause:    fmt.Errorf("engine answered %s: %s", resp.Status, resp.Message),
		})
	}
}

func (f *Fetcher) log(id BuildIdentity, category, outcome string, result ModelResult, elapsed time.Duration) {
	attrs := []any{
		"build", id.Fingerprint(),
		"root", id.Path(),
		"category", category,
		"outcome", outcome,
		"elapsed", elapsed,
	}
	if err, failed := result.Failure(); failed {
		attrs = append(attrs, "err", err)
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			f.logger.Warn("model fetch failed", attrs...)
			return
		}
	}
	f.logger.Debug("model fetched", attrs...)
}
