// Package scheduler runs delayed feature tasks and accounts for the time
// every feature spends in them.
package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"github.com/MONDERASDOR/SaverTab/errlog"
)

// Usage names why a feature spent time.
type Usage string

const (
	V180BugCompensation Usage = "v1.8.0 bug compensation"
	PacketReading       Usage = "packet reading"
	PlayerJoin          Usage = "player join"
	PlayerQuit          Usage = "player quit"
	WorldSwitch         Usage = "world switch"
	PlaceholderRefresh  Usage = "refreshing placeholders"
	Loading             Usage = "loading"
	Unloading           Usage = "unloading"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// Scheduler runs a task once after a delay.
type Scheduler interface {
	RunTaskLater(delay time.Duration, label, feature string, usage Usage, task func())
}

type key struct {
	feature string
	usage   Usage
}

// Stat is the accumulated time of one feature and usage.
type Stat struct {
	Feature string
	Usage   Usage
	Calls   int64
	Total   time.Duration
}

// Manager is the default Scheduler backed by time.AfterFunc.
type Manager struct {
	errs *errlog.Manager

	mu     sync.Mutex
	stats  map[key]*Stat
	timers map[*time.Timer]struct{}

	pending sync.WaitGroup
	stopped atomic.Bool
}

func New(errs *errlog.Manager) *Manager {
	return &Manager{
		errs:   errs,
		stats:  make(map[key]*Stat),
		timers: make(map[*time.Timer]struct{}),
	}
}

// RunTaskLater runs task after delay on its own goroutine. Tasks scheduled
// after Stop are dropped.
func (m *Manager) RunTaskLater(delay time.Duration, label, feature string, usage Usage, task func()) {
	if m.stopped.Load() {
		return
	}
	m.errs.Debugf("%s: %s in %s", feature, label, durafmt.Parse(delay).LimitFirstN(2).Format(shortUnits))
	m.pending.Add(1)
	var t *time.Timer
	m.mu.Lock()
	t = time.AfterFunc(delay, func() {
		defer m.pending.Done()
		m.mu.Lock()
		delete(m.timers, t)
		m.mu.Unlock()
		if m.stopped.Load() {
			return
		}
		m.Measure(feature, usage, label, task)
	})
	m.timers[t] = struct{}{}
	m.mu.Unlock()
}

// Measure runs task now, records its duration and reports a panic instead of
// propagating it.
func (m *Manager) Measure(feature string, usage Usage, label string, task func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.errs.PrintError(fmt.Sprintf("%s: %s failed", feature, label), fmt.Errorf("%v", r), false, errlog.Errors)
		}
		m.record(feature, usage, time.Since(start))
	}()
	task()
}

func (m *Manager) record(feature string, usage Usage, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{feature, usage}
	s, ok := m.stats[k]
	if !ok {
		s = &Stat{Feature: feature, Usage: usage}
		m.stats[k] = s
	}
	s.Calls++
	s.Total += d
}

// Stats returns the recorded usage, most expensive first.
func (m *Manager) Stats() []Stat {
	m.mu.Lock()
	out := make([]Stat, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, *s)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Feature+string(out[i].Usage) < out[j].Feature+string(out[j].Usage)
	})
	return out
}

// Report formats Stats for the console.
func (m *Manager) Report() string {
	var sb strings.Builder
	for _, s := range m.Stats() {
		fmt.Fprintf(&sb, "%s (%s): %s calls, %s\n", s.Feature, s.Usage,
			humanize.Comma(s.Calls), durafmt.Parse(s.Total).LimitFirstN(2).Format(shortUnits))
	}
	return sb.String()
}

// Stop cancels pending tasks and waits for running ones.
func (m *Manager) Stop() {
	if m.stopped.Swap(true) {
		return
	}
	m.mu.Lock()
	for t := range m.timers {
		if t.Stop() {
			m.pending.Done()
		}
		delete(m.timers, t)
	}
	m.mu.Unlock()
	m.pending.Wait()
}

// Wait blocks until every scheduled task has run.
func (m *Manager) Wait() { m.pending.Wait() }
