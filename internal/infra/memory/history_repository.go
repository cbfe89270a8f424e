package memory

import (
	"context"
	"sort"
	"sync"

	"lila-rooms/internal/domain"
	"lila-rooms/internal/repository"
)

// HistoryRepository 内存版历史记录，按 ID 覆盖写入，FinishedAt 保留第一次的值。
type HistoryRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.HistoryEntry
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{entries: make(map[string]domain.HistoryEntry)}
}

var _ repository.HistoryRepository = (*HistoryRepository)(nil)

func (h *HistoryRepository) Upsert(_ context.Context, entries []domain.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entries {
		if old, ok := h.entries[e.ID]; ok {
			e.FinishedAt = old.FinishedAt
		}
		h.entries[e.ID] = e
	}
	return nil
}

func (h *HistoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	h.mu.RLock()
	out := make([]domain.HistoryEntry, 0)
	for _, e := range h.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
