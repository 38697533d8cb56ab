// Package memory provides an in-memory usage ledger for testing and
// lightweight deployments. Records are lost when the process restarts.
// Optional bounded retention caps memory usage by dropping the oldest
// records first.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/mkappe/gemgate/pkg/storage"
)

// Ledger is an in-memory UsageLedger with optional bounded retention.
type Ledger struct {
	mu      sync.RWMutex
	records *list.List // front = newest, back = oldest
	totals  map[string]*storage.ModelTotals
	maxSize int // 0 = unlimited
}

var _ storage.UsageLedger = (*Ledger)(nil)

// New creates an in-memory ledger. If maxSize is 0, records are retained
// without limit. If maxSize > 0, the oldest record is dropped when the
// limit is reached; model totals still cover dropped records.
func New(maxSize int) *Ledger {
	return &Ledger{
		records: list.New(),
		totals:  make(map[string]*storage.ModelTotals),
		maxSize: maxSize,
	}
}

// Record stores one usage record, filling the caller from the context.
func (l *Ledger) Record(ctx context.Context, rec *storage.UsageRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := *rec
	if stored.Caller == "" {
		stored.Caller = storage.GetCaller(ctx)
	}

	if l.maxSize > 0 && l.records.Len() >= l.maxSize {
		if back := l.records.Back(); back != nil {
			l.records.Remove(back)
		}
	}
	l.records.PushFront(&stored)

	t, ok := l.totals[stored.Model]
	if !ok {
		t = &storage.ModelTotals{Model: stored.Model}
		l.totals[stored.Model] = t
	}
	t.Requests++
	t.PromptTokens += int64(stored.PromptTokens)
	t.OutputTokens += int64(stored.OutputTokens)

	return nil
}

// Recent returns up to limit records, newest first. When the context
// carries a caller identity, only that caller's records are returned.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*storage.UsageRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	caller := storage.GetCaller(ctx)
	out := make([]*storage.UsageRecord, 0, limit)
	for e := l.records.Front(); e != nil && len(out) < limit; e = e.Next() {
		rec := e.Value.(*storage.UsageRecord)
		if caller != "" && rec.Caller != caller {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// TotalsByModel aggregates usage per model, sorted by model name.
func (l *Ledger) TotalsByModel(_ context.Context) ([]storage.ModelTotals, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]storage.ModelTotals, 0, len(l.totals))
	for _, t := range l.totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// HealthCheck always returns nil for the in-memory ledger.
func (l *Ledger) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory ledger.
func (l *Ledger) Close() error {
	return nil
}
