package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/metrics"
)

// attempt is one named link of a strategy chain.
type attempt[T any] struct {
	name string
	run  func(ctx context.Context) (T, error)
}

// runChain invokes each attempt in order and returns the first result
// passing accept, together with the name of the strategy that produced
// it. accept returns nil to keep a result or an error (typically a
// QualityTooLowError) explaining the rejection. Errors never escape:
// each failure is logged with its classification and converted into
// "try the next strategy". ok is false only when every attempt failed
// or was rejected, at which point the caller falls back to the
// synthetic generator.
func runChain[T any](ctx context.Context, log *zap.Logger, kind, target string, attempts []attempt[T], accept func(T) error) (result T, name string, ok bool) {
	for _, a := range attempts {
		res, err := a.run(ctx)
		if err == nil {
			err = accept(res)
		}
		if err != nil {
			class := fetch.Classify(err)
			metrics.ObserveFetchAttempt(kind, a.name, class)
			log.Warn("strategy failed",
				zap.String("kind", kind),
				zap.String("strategy", a.name),
				zap.String("target", target),
				zap.String("class", class),
				zap.Error(err))
			continue
		}
		metrics.ObserveFetchAttempt(kind, a.name, "accepted")
		return res, a.name, true
	}
	return result, "", false
}
