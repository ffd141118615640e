package encounter

import (
	"sort"
	"time"
)

type timerName string

const (
	timerRetry    timerName = "retry"
	timerMetadata timerName = "metadata_timeout"
	timerDwell    timerName = "dwell"
)

type timer struct {
	name timerName
	due  time.Duration
	seq  uint64
	fire func()
}

// timers is a tiny deadline queue keyed by name; scheduling a name that is
// already pending replaces it.
type timers struct {
	pending []timer
	seq     uint64
}

func (t *timers) schedule(name timerName, due time.Duration, fire func()) {
	t.cancel(name)
	t.seq++
	t.pending = append(t.pending, timer{name: name, due: due, seq: t.seq, fire: fire})
	sort.Slice(t.pending, func(i, j int) bool {
		if t.pending[i].due != t.pending[j].due {
			return t.pending[i].due < t.pending[j].due
		}
		return t.pending[i].seq < t.pending[j].seq
	})
}

func (t *timers) cancel(name timerName) {
	for i, p := range t.pending {
		if p.name == name {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

func (t *timers) clear() { t.pending = nil }

// popDue removes and returns the earliest timer due at or before now
func (t *timers) popDue(now time.Duration) (timer, bool) {
	if len(t.pending) == 0 || t.pending[0].due > now {
		return timer{}, false
	}
	next := t.pending[0]
	t.pending = t.pending[1:]
	return next, true
}

// TimerView is a pending delay as shown in snapshots
type TimerView struct {
	Name      string        `json:"name"`
	Remaining time.Duration `json:"remaining"`
}

func (t *timers) view(now time.Duration) []TimerView {
	if len(t.pending) == 0 {
		return nil
	}
	out := make([]TimerView, len(t.pending))
	for i, p := range t.pending {
		out[i] = TimerView{Name: string(p.name), Remaining: p.due - now}
	}
	return out
}
