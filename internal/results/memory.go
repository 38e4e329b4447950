package results

import (
	"context"
	"sync"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

// Memory keeps results for the life of the process
type Memory struct {
	mu    sync.RWMutex
	byID  map[string]*types.AnalysisResult
	order []string
}

var _ interfaces.ResultStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*types.AnalysisResult)}
}

func (m *Memory) Save(_ context.Context, r *types.AnalysisResult) (string, error) {
	prepare(r)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.byID[r.ID] = clone(r)
	return r.ID, nil
}

func (m *Memory) Get(_ context.Context, id string) (*types.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (m *Memory) List(_ context.Context, opts interfaces.ListOptions) ([]*types.AnalysisResult, error) {
	sym := normalizeSymbol(opts.Symbol)

	m.mu.RLock()
	out := make([]*types.AnalysisResult, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.byID[m.order[i]]
		if sym != "" && r.Symbol != sym {
			continue
		}
		out = append(out, clone(r))
	}
	m.mu.RUnlock()

	newestFirst(out)
	return applyLimit(out, opts.Limit), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
