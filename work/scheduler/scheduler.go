// Package scheduler maintains the set of ad breaks for a playlist: the
// fixed static schedule in static mode, or runtime command-endpoint
// inserts in dynamic mode. State mutation follows the copy-on-write
// snapshot-swap pattern spec_full.md §4.4 describes and the teacher's
// proxy.ImportStreams uses for its
// sync.Map-based channel swap: every mutation builds a new immutable
// breakSnapshot and atomically swaps it in, so readers never lock.
package scheduler

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"sgai-proxy/work/model"
)

type breakSnapshot struct {
	breaks []model.AdBreak
}

// Scheduler owns one playlist's break schedule.
type Scheduler struct {
	mode       model.InsertionMode
	cycle      time.Duration
	duration   time.Duration
	podCount   int
	fixedCount int

	current atomic.Pointer[breakSnapshot]
}

// New builds a Scheduler. The fixed static schedule is NOT materialized
// here — it must be anchored at the playlist's first observed PDT, which
// is not known until the first fetch, so construction only sets up an
// empty snapshot. Callers reach the real schedule via EnsureFixedSchedule.
func New(mode model.InsertionMode, cycle, duration time.Duration, podCount, fixedCount int) *Scheduler {
	s := &Scheduler{
		mode:       mode,
		cycle:      cycle,
		duration:   duration,
		podCount:   podCount,
		fixedCount: fixedCount,
	}
	s.current.Store(&breakSnapshot{})
	return s
}

// materializeFixedSchedule builds the fixed-cycle break list anchored at
// base (the playlist's first observed PDT) and swaps it in, but only
// when the current snapshot is empty — the static schedule is
// materialized once, not regenerated on every fetch. Breaks are indexed
// 0..fixedCount-1, the first landing at base+0 (spec.md §4.4), and take
// their id from model.AdBreak.Name() ("ad_slot0", "ad_slot1", ...).
func (s *Scheduler) materializeFixedSchedule(base time.Time) {
	snap := s.current.Load()
	if snap != nil && len(snap.breaks) > 0 {
		return
	}

	breaks := make([]model.AdBreak, 0, s.fixedCount)
	for i := 0; i < s.fixedCount; i++ {
		b := model.AdBreak{
			Index:     i,
			StartTime: base.Add(time.Duration(i) * s.cycle),
			Duration:  s.duration,
			PodCount:  s.podCount,
		}
		b.ID = b.Name()
		breaks = append(breaks, b)
	}
	s.current.Store(&breakSnapshot{breaks: breaks})
}

// EnsureFixedSchedule materializes the fixed schedule anchored at base if
// it has not been materialized yet (the scheduler is constructed before
// the playlist's init PDT is known, so New cannot anchor it).
func (s *Scheduler) EnsureFixedSchedule(base time.Time) {
	if s.mode != model.InsertionStatic {
		return
	}
	snap := s.current.Load()
	if snap != nil && len(snap.breaks) > 0 {
		return
	}
	s.materializeFixedSchedule(base)
}

// Insert adds a runtime-scheduled break (the /command endpoint). Rejected
// by callers in static mode before reaching here (spec.md §4.4: static
// mode does not accept command-endpoint inserts).
func (s *Scheduler) Insert(cmd model.InsertionCommand, now time.Time) model.AdBreak {
	old := s.current.Load()
	newBreaks := make([]model.AdBreak, len(old.breaks))
	copy(newBreaks, old.breaks)

	b := model.AdBreak{
		ID:        "cmd" + strconv.Itoa(len(newBreaks)),
		Index:     len(newBreaks),
		StartTime: now.Add(time.Duration(cmd.InSeconds * float64(time.Second))),
		Duration:  cmd.Duration,
		PodCount:  cmd.PodCount,
	}
	newBreaks = append(newBreaks, b)
	sort.SliceStable(newBreaks, func(i, j int) bool {
		return newBreaks[i].StartTime.Before(newBreaks[j].StartTime)
	})
	s.current.Store(&breakSnapshot{breaks: newBreaks})
	return b
}

// InsertBatch applies a CommandBatch atomically: all entries land in a
// single snapshot swap rather than one swap per entry.
func (s *Scheduler) InsertBatch(cmds []model.InsertionCommand, now time.Time) []model.AdBreak {
	old := s.current.Load()
	newBreaks := make([]model.AdBreak, len(old.breaks))
	copy(newBreaks, old.breaks)

	added := make([]model.AdBreak, 0, len(cmds))
	for _, cmd := range cmds {
		b := model.AdBreak{
			ID:        "cmd" + strconv.Itoa(len(newBreaks)),
			Index:     len(newBreaks),
			StartTime: now.Add(time.Duration(cmd.InSeconds * float64(time.Second))),
			Duration:  cmd.Duration,
			PodCount:  cmd.PodCount,
		}
		newBreaks = append(newBreaks, b)
		added = append(added, b)
	}
	sort.SliceStable(newBreaks, func(i, j int) bool {
		return newBreaks[i].StartTime.Before(newBreaks[j].StartTime)
	})
	s.current.Store(&breakSnapshot{breaks: newBreaks})
	return added
}

// Snapshot returns the current break list. Callers must not mutate the
// returned slice; it is shared with other readers.
func (s *Scheduler) Snapshot() []model.AdBreak {
	return s.current.Load().breaks
}

// BreakAt returns the break whose [StartTime, StartTime+Duration) window
// contains pdt, if any — the insertion-point test original_source/ runs
// per segment PDT.
func (s *Scheduler) BreakAt(pdt time.Time) (model.AdBreak, bool) {
	for _, b := range s.Snapshot() {
		if !pdt.Before(b.StartTime) && pdt.Before(b.StartTime.Add(b.Duration)) {
			return b, true
		}
	}
	return model.AdBreak{}, false
}

// GC drops breaks whose window has fully scrolled past the live edge,
// keeping the snapshot from growing unboundedly over a long-running live
// stream.
func (s *Scheduler) GC(liveEdge time.Time) {
	old := s.current.Load()
	kept := make([]model.AdBreak, 0, len(old.breaks))
	for _, b := range old.breaks {
		if b.StartTime.Add(b.Duration).After(liveEdge) {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(old.breaks) {
		return
	}
	s.current.Store(&breakSnapshot{breaks: kept})
}
