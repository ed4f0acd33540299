package threadsafe

import (
	"sync"
	"time"
)

type Time struct {
	time time.Time
	mux  sync.Mutex
}

func NewTime(t time.Time) *Time {
	return &Time{
		time: t,
	}
}

func (t *Time) Get() time.Time {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.time
}

func (t *Time) Set(value time.Time) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.time = value
}

// SetIf stores value only when condition accepts the current one, atomically.
func (t *Time) SetIf(value time.Time, condition func(current time.Time) bool) bool {
	t.mux.Lock()
	defer t.mux.Unlock()
	if !condition(t.time) {
		return false
	}
	t.time = value
	return true
}
