// Package ai holds the inference providers that turn a market snapshot
// into a structured trading recommendation. Providers make single
// attempts; retry and failover policy belongs to the caller.
package ai

import (
	"context"

	"github.com/predictos/predictbot/internal/domain"
)

// Provider is one inference backend. Any provider implementing this
// contract can sit in either the primary or the fallback slot.
type Provider interface {
	Name() string
	Infer(ctx context.Context, prompt string) (domain.Analysis, error)
}
