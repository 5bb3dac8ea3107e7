package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	phase Phase
	name  string
	log   *[]string
}

func (r recorder) Phase() Phase             { return r.phase }
func (r recorder) Update(dt time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{PhaseUpdate, "entities", &log})
	r.Register(recorder{PhaseInput, "input", &log})
	r.Register(recorder{PhasePreUpdate, "events", &log})
	r.Register(recorder{PhaseUpdate, "hud", &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "events", "entities", "hud"}, log)

	log = nil
	r.Pause(PhaseUpdate)
	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "events"}, log)

	log = nil
	r.Resume(PhaseUpdate)
	r.TickPhase(PhaseUpdate, time.Millisecond)
	assert.Equal(t, []string{"entities", "hud"}, log)
}
