package connection

import (
	"sort"
	"sync"
)

// Table owns every live handle. A handle leaves the table only through
// Release, which also closes it.
type Table struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

func NewTable() *Table {
	return &Table{handles: make(map[string]*Handle)}
}

func (t *Table) Register(h *Handle) {
	t.mu.Lock()
	t.handles[h.ID()] = h
	t.mu.Unlock()
}

// Release closes and forgets the handle with id. It reports whether the
// handle was registered.
func (t *Table) Release(id string) bool {
	t.mu.Lock()
	h, ok := t.handles[id]
	delete(t.handles, id)
	t.mu.Unlock()

	if ok {
		h.Close()
	}
	return ok
}

func (t *Table) Get(id string) (*Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[id]
	return h, ok
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// IDs lists registered handle ids, oldest first.
func (t *Table) IDs() []string {
	t.mu.Lock()
	hs := make([]*Handle, 0, len(t.handles))
	for _, h := range t.handles {
		hs = append(hs, h)
	}
	t.mu.Unlock()

	sort.Slice(hs, func(i, j int) bool { return hs[i].Created().Before(hs[j].Created()) })
	ids := make([]string, len(hs))
	for i, h := range hs {
		ids[i] = h.ID()
	}
	return ids
}

// ReleaseAll closes every handle.
func (t *Table) ReleaseAll() {
	t.mu.Lock()
	hs := t.handles
	t.handles = make(map[string]*Handle)
	t.mu.Unlock()

	for _, h := range hs {
		h.Close()
	}
}
