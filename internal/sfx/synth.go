// Package sfx synthesizes the game's sound cues and plays them through the
// system speaker.
package sfx

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
)

// SampleRate used for every cue
const SampleRate = beep.SampleRate(44100)

// Cues lists every cue the orchestrator can request, in a stable order.
func Cues() []encounter.Cue {
	return []encounter.Cue{encounter.CueThrow, encounter.CueHit, encounter.CueSuccess, encounter.CueFail}
}

// ParseCue maps a cue name to its value
func ParseCue(name string) (encounter.Cue, error) {
	for _, c := range Cues() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("sfx: unknown cue %q", name)
}

type wave int

const (
	waveSine wave = iota
	waveSquare
	waveNoise
)

// tone is a fixed-length oscillator with an optional linear pitch glide.
type tone struct {
	from, to float64
	wave     wave
	rate     beep.SampleRate
	length   int
	pos      int
	phase    float64
	rng      *rand.Rand
}

func newTone(from, to float64, d time.Duration, w wave) *tone {
	return &tone{
		from:   from,
		to:     to,
		wave:   w,
		rate:   SampleRate,
		length: SampleRate.N(d),
		// fixed seed keeps exported files byte-stable
		rng: rand.New(rand.NewSource(7)),
	}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if t.pos >= t.length {
			return i, i > 0
		}
		var v float64
		switch t.wave {
		case waveSine:
			v = math.Sin(2 * math.Pi * t.phase)
		case waveSquare:
			v = 1
			if t.phase >= 0.5 {
				v = -1
			}
		case waveNoise:
			v = t.rng.Float64()*2 - 1
		}
		samples[i][0], samples[i][1] = v, v

		freq := t.from + (t.to-t.from)*float64(t.pos)/float64(t.length)
		t.phase += freq / float64(t.rate)
		t.phase -= math.Floor(t.phase)
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

// envelope fades a stream in over attack and out over release.
type envelope struct {
	s               beep.Streamer
	pos, total      int
	attack, release int
}

func shape(s beep.Streamer, d, attack, release time.Duration) beep.Streamer {
	return &envelope{s: s, total: SampleRate.N(d), attack: SampleRate.N(attack), release: SampleRate.N(release)}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.s.Stream(samples)
	for i := 0; i < n; i++ {
		gain := 1.0
		if e.attack > 0 && e.pos < e.attack {
			gain = float64(e.pos) / float64(e.attack)
		}
		if left := e.total - e.pos; e.release > 0 && left < e.release {
			gain = math.Max(0, float64(left)/float64(e.release))
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.s.Err() }

// volume scales linearly; zero or less is silent.
func volume(s beep.Streamer, v float64) beep.Streamer {
	if v <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(v)}
}

func note(freq float64, d time.Duration, w wave) beep.Streamer {
	return shape(newTone(freq, freq, d, w), d, 5*time.Millisecond, d/2)
}

// Stream returns a fresh streamer for cue at the given linear volume (1 is
// full scale). Unknown cues yield nil.
func Stream(cue encounter.Cue, vol float64) beep.Streamer {
	var s beep.Streamer
	switch cue {
	case encounter.CueThrow:
		// rising whoosh
		d := 220 * time.Millisecond
		s = beep.Mix(
			volume(shape(newTone(0, 0, d, waveNoise), d, 20*time.Millisecond, 120*time.Millisecond), 0.25),
			volume(shape(newTone(180, 520, d, waveSine), d, 10*time.Millisecond, 100*time.Millisecond), 0.5),
		)
	case encounter.CueHit:
		d := 90 * time.Millisecond
		s = beep.Mix(
			volume(shape(newTone(140, 70, d, waveSine), d, 2*time.Millisecond, 60*time.Millisecond), 0.7),
			volume(shape(newTone(0, 0, d/2, waveNoise), d/2, time.Millisecond, 30*time.Millisecond), 0.2),
		)
	case encounter.CueSuccess:
		// C5 E5 G5 C6 arpeggio
		s = beep.Seq(
			volume(note(523.25, 90*time.Millisecond, waveSquare), 0.35),
			volume(note(659.25, 90*time.Millisecond, waveSquare), 0.35),
			volume(note(783.99, 90*time.Millisecond, waveSquare), 0.35),
			volume(note(1046.5, 260*time.Millisecond, waveSquare), 0.35),
		)
	case encounter.CueFail:
		d := 420 * time.Millisecond
		s = volume(shape(newTone(392, 196, d, waveSquare), d, 5*time.Millisecond, 200*time.Millisecond), 0.3)
	default:
		return nil
	}
	return volume(s, vol)
}

// Duration is how long cue plays
func Duration(cue encounter.Cue) time.Duration {
	switch cue {
	case encounter.CueThrow:
		return 220 * time.Millisecond
	case encounter.CueHit:
		return 90 * time.Millisecond
	case encounter.CueSuccess:
		return 3*90*time.Millisecond + 260*time.Millisecond
	case encounter.CueFail:
		return 420 * time.Millisecond
	}
	return 0
}

// WriteWAV encodes cue as 16-bit stereo PCM
func WriteWAV(w io.WriteSeeker, cue encounter.Cue, vol float64) error {
	s := Stream(cue, vol)
	if s == nil {
		return fmt.Errorf("sfx: unknown cue %q", cue)
	}
	format := beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, s, format); err != nil {
		return fmt.Errorf("sfx: encode %s: %w", cue, err)
	}
	return nil
}
