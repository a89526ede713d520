package feature

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory Store used for tests and batch replay.
// All state is deep-copied across the boundary so tracker mutations only
// take effect through Put.
type MemoryStore struct {
	mu        sync.RWMutex
	windows   map[EntityKey]*WindowState
	expanding map[EntityKey]*ExpandingState
	rates     map[EntityKey]*FraudRateState
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows:   make(map[EntityKey]*WindowState),
		expanding: make(map[EntityKey]*ExpandingState),
		rates:     make(map[EntityKey]*FraudRateState),
	}
}

func (m *MemoryStore) GetWindow(_ context.Context, key EntityKey) (*WindowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.windows[key]
	if !ok {
		return &WindowState{}, nil
	}
	cp := &WindowState{FirstSeen: st.FirstSeen}
	cp.Entries = append(cp.Entries, st.Entries...)
	return cp, nil
}

func (m *MemoryStore) PutWindow(_ context.Context, key EntityKey, st *WindowState) error {
	cp := &WindowState{FirstSeen: st.FirstSeen}
	cp.Entries = append(cp.Entries, st.Entries...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[key] = cp
	return nil
}

func (m *MemoryStore) GetExpanding(_ context.Context, key EntityKey) (*ExpandingState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.expanding[key]
	if !ok {
		return &ExpandingState{}, nil
	}
	return copyExpanding(st), nil
}

func (m *MemoryStore) PutExpanding(_ context.Context, key EntityKey, st *ExpandingState) error {
	cp := copyExpanding(st)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.expanding[key] = cp
	return nil
}

func (m *MemoryStore) GetFraudRate(_ context.Context, key EntityKey) (*FraudRateState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.rates[key]
	if !ok {
		return &FraudRateState{}, nil
	}
	cp := *st
	return &cp, nil
}

func (m *MemoryStore) AddFraudOutcome(_ context.Context, key EntityKey, fraud bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.rates[key]
	if !ok {
		st = &FraudRateState{}
		m.rates[key] = st
	}
	st.TxCount++
	if fraud {
		st.FraudCount++
	}
	return nil
}

func copyExpanding(st *ExpandingState) *ExpandingState {
	cp := &ExpandingState{
		Count:        st.Count,
		Sum:          st.Sum,
		SumSq:        st.SumSq,
		CountryTotal: st.CountryTotal,
		LastCountry:  st.LastCountry,
	}
	cp.Amounts = append(cp.Amounts, st.Amounts...)
	if st.CountryCounts != nil {
		cp.CountryCounts = make(map[string]int64, len(st.CountryCounts))
		for k, v := range st.CountryCounts {
			cp.CountryCounts[k] = v
		}
	}
	return cp
}
