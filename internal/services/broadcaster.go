package services

import "sync"

// LedgerObserver is told about every committed balance or spin change.
// Callbacks run on the mutating goroutine and must not call back into the ledger.
type LedgerObserver interface {
	BalanceChanged(balance int64)
	SpinsChanged(spins int64)
}

// Broadcaster fans ledger changes out to subscribed observers.
type Broadcaster struct {
	mu        sync.RWMutex
	nextID    int
	observers map[int]LedgerObserver
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{observers: make(map[int]LedgerObserver)}
}

// Subscribe registers obs and returns a function that removes it.
func (b *Broadcaster) Subscribe(obs LedgerObserver) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.observers[id] = obs

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

func (b *Broadcaster) BroadcastBalance(balance int64) {
	for _, obs := range b.snapshot() {
		obs.BalanceChanged(balance)
	}
}

func (b *Broadcaster) BroadcastSpins(spins int64) {
	for _, obs := range b.snapshot() {
		obs.SpinsChanged(spins)
	}
}

func (b *Broadcaster) snapshot() []LedgerObserver {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]LedgerObserver, 0, len(b.observers))
	for _, obs := range b.observers {
		out = append(out, obs)
	}
	return out
}

// ObserverFuncs adapts plain functions to LedgerObserver. Nil fields are skipped.
type ObserverFuncs struct {
	OnBalance func(balance int64)
	OnSpins   func(spins int64)
}

func (f ObserverFuncs) BalanceChanged(balance int64) {
	if f.OnBalance != nil {
		f.OnBalance(balance)
	}
}

func (f ObserverFuncs) SpinsChanged(spins int64) {
	if f.OnSpins != nil {
		f.OnSpins(spins)
	}
}
