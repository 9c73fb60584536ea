package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/schema"
)

// ChainOptions bounds each provider attempt.
type ChainOptions struct {
	Timeout    time.Duration // per attempt; 0 disables the deadline
	MaxRetries int           // extra attempts per provider after the first
	Backoff    time.Duration // base delay, doubled per retry
}

// Chain tries providers in order, with per-attempt timeouts and retries,
// and returns the first success along with the provider that produced it.
type Chain struct {
	providers []Provider
	opts      ChainOptions
	logger    *slog.Logger
}

func NewChain(providers []Provider, opts ChainOptions, logger *slog.Logger) *Chain {
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, opts: opts, logger: logger}
}

// Extract runs the chain. Parse failures are not retried against the same
// provider: a malformed reply is almost always deterministic, so the next
// provider gets its turn instead.
func (c *Chain) Extract(ctx context.Context, src Source, inst Instruction) (map[string]schema.FieldValue, string, error) {
	if len(c.providers) == 0 {
		return nil, "", common.NewAppError("NO_PROVIDERS", "extraction chain is empty", common.ErrProvider)
	}

	var lastErr error
	for _, p := range c.providers {
		fields, err := c.tryProvider(ctx, p, src, inst)
		if err == nil {
			return fields, p.Name(), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("extract.chain.provider_exhausted",
			"provider", p.Name(),
			"filename", src.Filename,
			"error", err,
		)
	}

	return nil, "", common.NewAppError("ALL_PROVIDERS_FAILED",
		fmt.Sprintf("all %d providers failed for %s", len(c.providers), src.Filename), lastErr)
}

func (c *Chain) tryProvider(ctx context.Context, p Provider, src Source, inst Instruction) (map[string]schema.FieldValue, error) {
	attempts := 1 + c.opts.MaxRetries
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if c.opts.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		}

		fields, err := p.Extract(attemptCtx, src, inst)
		cancel()
		if err == nil {
			return fields, nil
		}
		lastErr = err

		if errors.Is(err, common.ErrParse) || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			delay := c.opts.Backoff << (attempt - 1)
			c.logger.Debug("extract.chain.retry",
				"provider", p.Name(),
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
