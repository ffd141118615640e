package sfx

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
)

// Player mixes cues onto the system speaker. A Player that was never
// initialized, or whose Init failed, drops every cue.
type Player struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	volume float64
	muted  bool
	ready  bool
	played map[encounter.Cue]int
}

// NewPlayer creates a player at the given linear volume
func NewPlayer(volume float64) *Player {
	return &Player{
		mixer:  &beep.Mixer{},
		volume: volume,
		played: make(map[encounter.Cue]int),
	}
}

// Init opens the speaker. Call once per process.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.ready = true
	return nil
}

// SetMuted silences future cues without closing the speaker
func (p *Player) SetMuted(m bool) {
	p.mu.Lock()
	p.muted = m
	p.mu.Unlock()
}

// Play queues cue. It never blocks on audio output.
func (p *Player) Play(cue encounter.Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.muted {
		return
	}
	p.played[cue]++
	if !p.ready {
		return
	}
	s := Stream(cue, p.volume)
	if s == nil {
		return
	}
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

// Played reports how many times each cue was requested while unmuted
func (p *Player) Played() map[encounter.Cue]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[encounter.Cue]int, len(p.played))
	for k, v := range p.played {
		out[k] = v
	}
	return out
}

// Handle plays the cue carried by a SoundPlayed effect and ignores the rest
func (p *Player) Handle(effects []encounter.Effect) {
	for _, e := range effects {
		if s, ok := e.(encounter.SoundPlayed); ok {
			p.Play(s.Cue)
		}
	}
}

// Close stops playback and releases the speaker
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return
	}
	speaker.Clear()
	speaker.Close()
	p.ready = false
}
