package executor

import "sync"

// symbolLocks hands out one mutex per symbol so concurrent attempts on the
// same symbol serialize while unrelated symbols proceed independently. Locks
// are never removed; the symbol universe is small and bounded.
type symbolLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *symbolLocks) get(symbol string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.locks[symbol]; ok {
		return m
	}
	m := &sync.Mutex{}
	l.locks[symbol] = m
	return m
}
