// Package progress implements the cross-cutting progress/cancellation bus
// (C7, §4.6): weighted phases, ETA estimation via a moving average, and
// throttled best-effort emission to an injected sink.
package progress

import (
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// Event is one progress snapshot, matching the external interface's shape.
type Event struct {
	JobID           string
	Phase           string
	ProgressPercent float64
	ETASeconds      int
	ElapsedSeconds  int
	Message         string
}

// Sink receives progress events. Implementations must not block
// indefinitely: Publish is called with the bus's mutex held. A sink that
// panics is recovered, logged and otherwise ignored — emission is always
// best-effort (TransientInfra, never fatal).
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

type phase struct {
	name        string
	weight      float64
	totalSteps  int
	completed   int
}

// Bus tracks phase-weighted progress for one job and emits throttled
// events to its sink(s). Safe for concurrent use: the progress bus may be
// written from multiple worker goroutines (per §5), and writes are
// last-writer-wins snapshots under a single mutex.
type Bus struct {
	mu sync.Mutex

	jobID     string
	sinks     []Sink
	start     time.Time
	lastEmit  time.Time
	current   string
	phases    map[string]*phase
	phaseList []string

	iterationTimes []time.Duration
	lastStep       time.Time
}

// DefaultPhases returns the five weighted phases from §4.6.
func DefaultPhases() []struct {
	Name   string
	Weight float64
} {
	return []struct {
		Name   string
		Weight float64
	}{
		{"initialization", 5},
		{"clustering", 15},
		{"constraint_solving", 50},
		{"optimization", 25},
		{"finalization", 5},
	}
}

// NewBus creates a Bus for jobID, publishing to sinks.
func NewBus(jobID string, sinks ...Sink) *Bus {
	b := &Bus{
		jobID:  jobID,
		sinks:  sinks,
		start:  now(),
		phases: make(map[string]*phase),
	}
	for _, p := range DefaultPhases() {
		b.phases[p.Name] = &phase{name: p.Name, weight: p.Weight, totalSteps: 100}
		b.phaseList = append(b.phaseList, p.Name)
	}
	b.current = b.phaseList[0]
	b.lastStep = b.start
	return b
}

// SetPhase switches the active phase and resets its step counter.
func (b *Bus) SetPhase(name string, totalSteps int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.phases[name]
	if !ok {
		klog.Warningf("progress: unknown phase %q ignored", name)
		return
	}
	if totalSteps > 0 {
		p.totalSteps = totalSteps
	}
	p.completed = 0
	b.current = name
	klog.V(2).Infof("progress[%s]: phase -> %s (total steps %d)", b.jobID, name, p.totalSteps)
	b.emitLocked("")
}

// UpdatePhaseProgress reports step completion within the active phase.
func (b *Bus) UpdatePhaseProgress(step int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := now()
	b.iterationTimes = append(b.iterationTimes, n.Sub(b.lastStep))
	if len(b.iterationTimes) > 20 {
		b.iterationTimes = b.iterationTimes[len(b.iterationTimes)-20:]
	}
	b.lastStep = n

	p := b.phases[b.current]
	if p == nil {
		return
	}
	p.completed = step
	if p.completed > p.totalSteps {
		p.completed = p.totalSteps
	}

	if n.Sub(b.lastEmit) >= time.Second {
		b.emitLocked(message)
	}
}

// Snapshot returns the current Event without regard to throttling.
func (b *Bus) Snapshot() Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked("")
}

func (b *Bus) emitLocked(message string) {
	evt := b.snapshotLocked(message)
	b.lastEmit = now()
	for _, sink := range b.sinks {
		publishSafely(sink, evt)
	}
}

func publishSafely(sink Sink, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("progress: sink panicked: %v (treated as TransientInfra)", r)
		}
	}()
	sink.Publish(evt)
}

func (b *Bus) snapshotLocked(message string) Event {
	overall := 0.0
	for _, name := range b.phaseList {
		p := b.phases[name]
		phaseFrac := 0.0
		if p.totalSteps > 0 {
			phaseFrac = float64(p.completed) / float64(p.totalSteps)
		}
		overall += p.weight * phaseFrac / 100.0
	}
	if overall > 0.99 {
		overall = 99.0
	} else {
		overall *= 100
	}

	return Event{
		JobID:           b.jobID,
		Phase:           b.current,
		ProgressPercent: overall,
		ETASeconds:      b.etaLocked(),
		ElapsedSeconds:  int(now().Sub(b.start).Seconds()),
		Message:         message,
	}
}

// etaLocked estimates remaining seconds: moving average of the last 20
// step durations times remaining steps across the remaining phases,
// generalizing the original's deque(maxlen=20) pattern as a fixed-size
// ring slice.
func (b *Bus) etaLocked() int {
	if len(b.iterationTimes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range b.iterationTimes {
		sum += d
	}
	avg := sum / time.Duration(len(b.iterationTimes))

	remainingSteps := 0
	passedCurrent := false
	for _, name := range b.phaseList {
		p := b.phases[name]
		if name == b.current {
			remainingSteps += p.totalSteps - p.completed
			passedCurrent = true
			continue
		}
		if passedCurrent {
			remainingSteps += p.totalSteps
		}
	}
	eta := avg * time.Duration(remainingSteps)
	if eta < 0 {
		eta = 0
	}
	return int(eta.Seconds())
}

// Complete marks the job finished and emits a final event unconditionally.
func (b *Bus) Complete(success bool, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if success {
		for _, name := range b.phaseList {
			b.phases[name].completed = b.phases[name].totalSteps
		}
	}
	evt := b.snapshotLocked(message)
	if success {
		evt.ProgressPercent = 100
	}
	for _, sink := range b.sinks {
		publishSafely(sink, evt)
	}
}

var now = time.Now
