package metrics

import (
	"slices"
	"sync"
	"time"
)

type Kind string

const (
	KindCount        Kind = "count"
	KindTiming       Kind = "timing"
	KindGauge        Kind = "gauge"
	KindDistribution Kind = "distribution"
)

type Event struct {
	Kind  Kind
	Name  string
	Value float64
	Tags  []string
}

// Recorder keeps every emitted metric in memory. Used by tests and the one-shot CLI.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Count(name string, value int64, tags []string) {
	r.record(Event{Kind: KindCount, Name: name, Value: float64(value), Tags: slices.Clone(tags)})
}

func (r *Recorder) Incr(name string, tags []string) {
	r.Count(name, 1, tags)
}

func (r *Recorder) Timing(name string, value time.Duration, tags []string) {
	r.record(Event{Kind: KindTiming, Name: name, Value: float64(value.Milliseconds()), Tags: slices.Clone(tags)})
}

func (r *Recorder) Gauge(name string, value float64, tags []string) {
	r.record(Event{Kind: KindGauge, Name: name, Value: value, Tags: slices.Clone(tags)})
}

func (r *Recorder) Distribution(name string, value float64, tags []string) {
	r.record(Event{Kind: KindDistribution, Name: name, Value: value, Tags: slices.Clone(tags)})
}

// Events returns the recorded events named name, in emission order.
func (r *Recorder) Events(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Sum adds up the values of every event named name carrying all of tags.
func (r *Recorder) Sum(name string, tags ...string) float64 {
	var total float64
	for _, e := range r.Events(name) {
		if e.HasTags(tags...) {
			total += e.Value
		}
	}
	return total
}

func (e Event) HasTags(tags ...string) bool {
	for _, t := range tags {
		if !slices.Contains(e.Tags, t) {
			return false
		}
	}
	return true
}
