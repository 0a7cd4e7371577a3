package terminal

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/wricardo/clara/game/engine"
)

const sampleRate = beep.SampleRate(44100)

// Sound plays short tones. The zero value is silent until Init succeeds.
type Sound struct {
	mu          sync.Mutex
	initialized bool
}

// Init opens the speaker
func (s *Sound) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

// Play queues a sine tone
func (s *Sound) Play(freq float64, d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speaker.Play(tone(sampleRate, freq, d))
}

// tone generates a sine wave that fades out over d
func tone(rate beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := rate.N(d)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := 0
		for i := range samples {
			if pos >= total {
				break
			}
			gain := 0.3 * (1 - float64(pos)/float64(total))
			v := gain * math.Sin(2*math.Pi*freq*float64(pos)/float64(rate))
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}
		return n, true
	})
}

// Presentation shows the end-of-level overlay and plays the matching tone
type Presentation struct {
	sound   *Sound
	overlay string
}

// NewPresentation creates a presentation. sound may be nil.
func NewPresentation(sound *Sound) *Presentation {
	return &Presentation{sound: sound}
}

// Death is registered as the engine's death observer
func (p *Presentation) Death(res engine.Result) {
	p.overlay = "YOU DIED"
	p.sound.Play(196, 400*time.Millisecond)
}

// Win is registered as the engine's win observer
func (p *Presentation) Win(res engine.Result) {
	p.overlay = "YOU WIN"
	p.sound.Play(880, 300*time.Millisecond)
}

// Clear hides the overlay
func (p *Presentation) Clear() {
	p.overlay = ""
}

// Overlay returns the current overlay text, or ""
func (p *Presentation) Overlay() string {
	return p.overlay
}
