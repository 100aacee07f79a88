package domain

import (
	"context"
	"time"
)

// DecisionRecord is one audited decision row: the kind of operation served
// and its JSON-serializable detail. The core never reads these back; they
// exist for operator review and cold archival.
type DecisionRecord struct {
	ID        string
	Kind      string // "analysis", "order_plan", "assessment"
	Detail    map[string]any
	CreatedAt time.Time
}

// DecisionStore appends served decisions to durable storage. A nil store
// disables auditing; the core components themselves stay request-scoped and
// never touch it.
type DecisionStore interface {
	Append(ctx context.Context, kind string, detail map[string]any) error
	ListBefore(ctx context.Context, before time.Time, limit int) ([]DecisionRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
