package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/models"
	"smartbiz-ml/internal/retry"
	"smartbiz-ml/internal/telemetry"
)

// permanentError reports errors a retry cannot fix.
func permanentError(err error) bool {
	var inv *business.InvalidInputError
	return errors.Is(err, models.ErrNotTrained) || errors.As(err, &inv)
}

func outcome(err error) string {
	var inv *business.InvalidInputError
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.Is(err, models.ErrNotTrained):
		return telemetry.OutcomeNotTrained
	case errors.As(err, &inv):
		return telemetry.OutcomeInvalid
	case errors.Is(err, context.DeadlineExceeded):
		return telemetry.OutcomeTimeout
	}
	return telemetry.OutcomeError
}

// callWithContext returns as soon as ctx ends even if fn does not watch it.
func callWithContext[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

// invoke runs one model call under the engine's timeout and retry policy and
// wraps the error with the model name.
func invoke[T any](ctx context.Context, e *Engine, model string, call func(context.Context) (T, error)) (T, error) {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	start := time.Now()
	var out T
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		v, err := callWithContext(ctx, call)
		if err != nil {
			if permanentError(err) {
				return retry.Permanent(err)
			}
			log.Debug().Err(err).Str("model", model).Msg("Model call failed, retrying")
			return err
		}
		out = v
		return nil
	})
	e.metrics.ObserveInference(model, outcome(err), time.Since(start))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", model, err)
	}
	return out, nil
}
