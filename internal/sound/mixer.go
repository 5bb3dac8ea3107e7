// Package sound plays wav clips through a beep mixer. The mixer is a plain
// beep.Streamer; cmd hands it to the speaker.
package sound

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
	"go.uber.org/zap"
)

// ID is a sound handle returned by QuerySound. Zero is invalid.
type ID uint32

// MaxVolume is the top of the 0-10 volume scale used by scripts and config.
const MaxVolume = 10

// Player is the audio surface exposed to scripts.
type Player interface {
	QuerySound(path string) (ID, error)
	Play(id ID, volume int, loop bool) bool
	Stop(id ID) bool
	Volume() int
}

type clip struct {
	path    string
	buf     *beep.Buffer
	playing *beep.Ctrl
}

// Mixer implements Player. lock guards every mutation of the underlying
// beep.Mixer; pass speaker's lock when the mixer is being played.
type Mixer struct {
	lock   sync.Locker
	log    *zap.Logger
	format beep.Format
	mixer  *beep.Mixer
	clips  map[ID]*clip
	byPath map[string]ID
	nextID ID
	master int
}

var _ Player = (*Mixer)(nil)

func NewMixer(rate beep.SampleRate, master int, lock sync.Locker, log *zap.Logger) *Mixer {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Mixer{
		lock:   lock,
		log:    log,
		format: beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2},
		mixer:  &beep.Mixer{},
		clips:  make(map[ID]*clip),
		byPath: make(map[string]ID),
		master: clampVolume(master),
	}
}

// Streamer is the mix of every playing clip.
func (m *Mixer) Streamer() beep.Streamer { return m.mixer }

// QuerySound decodes a wav file into memory, resampled to the mixer rate.
// Repeated queries for one path return the same handle.
func (m *Mixer) QuerySound(path string) (ID, error) {
	m.lock.Lock()
	id, ok := m.byPath[path]
	m.lock.Unlock()
	if ok {
		return id, nil
	}

	buf, err := m.decode(path)
	if err != nil {
		return 0, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.nextID++
	m.clips[m.nextID] = &clip{path: path, buf: buf}
	m.byPath[path] = m.nextID
	m.log.Debug("sound loaded", zap.String("path", path), zap.Int("samples", buf.Len()))
	return m.nextID, nil
}

func (m *Mixer) decode(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sound %s: %w", path, err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode sound %s: %w", path, err)
	}
	defer s.Close()

	var src beep.Streamer = s
	if format.SampleRate != m.format.SampleRate {
		src = beep.Resample(4, format.SampleRate, m.format.SampleRate, s)
	}
	buf := beep.NewBuffer(m.format)
	buf.Append(src)
	return buf, nil
}

// Play starts a clip at volume (0-10, scaled by the master volume). A clip
// that is already playing restarts.
func (m *Mixer) Play(id ID, volume int, loop bool) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	c, ok := m.clips[id]
	if !ok {
		return false
	}
	if c.playing != nil {
		c.playing.Streamer = nil
	}

	var s beep.Streamer = c.buf.Streamer(0, c.buf.Len())
	if loop {
		s = beep.Loop(-1, c.buf.Streamer(0, c.buf.Len()))
	}
	level := clampVolume(volume) * m.master
	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   gain(level),
		Silent:   level == 0,
	}
	c.playing = &beep.Ctrl{Streamer: vol}
	m.mixer.Add(c.playing)
	return true
}

// Stop ends a playing clip. Stopping an idle clip succeeds.
func (m *Mixer) Stop(id ID) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	c, ok := m.clips[id]
	if !ok {
		return false
	}
	if c.playing != nil {
		// A nil streamer makes the Ctrl report end of stream and the mixer drops it.
		c.playing.Streamer = nil
		c.playing = nil
	}
	return true
}

func (m *Mixer) Volume() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.master
}

func (m *Mixer) SetVolume(v int) {
	m.lock.Lock()
	m.master = clampVolume(v)
	m.lock.Unlock()
}

// Playing reports how many clips the mixer is still streaming.
func (m *Mixer) Playing() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.mixer.Len()
}

// Close stops everything and forgets every clip.
func (m *Mixer) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.mixer.Clear()
	m.clips = make(map[ID]*clip)
	m.byPath = make(map[string]ID)
}

// gain maps a 0-100 level to a base-2 exponent, full scale at 100.
func gain(level int) float64 {
	if level <= 0 {
		return 0
	}
	return math.Log2(float64(level) / float64(MaxVolume*MaxVolume))
}

func clampVolume(v int) int {
	return max(0, min(v, MaxVolume))
}
