package cache

import "sync"

// roomLocker hands out one mutex per room code and frees it when nobody holds or waits on it.
type roomLocker struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocker() *roomLocker {
	return &roomLocker{locks: make(map[string]*roomLock)}
}

// Lock blocks until code is held and returns the matching unlock.
func (l *roomLocker) Lock(code string) func() {
	l.mu.Lock()
	rl, ok := l.locks[code]
	if !ok {
		rl = &roomLock{}
		l.locks[code] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, code)
		}
		l.mu.Unlock()
	}
}
