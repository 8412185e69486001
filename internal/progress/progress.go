// Package progress implements run and phase progress reporting:
// a wall-clock timer, ETA/throughput formatting and RSS/peak-RSS readout,
// plus the end-of-run summary line.
package progress

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Timer is a simple wall-clock stopwatch; each phase of TableWorker owns
// its own.
type Timer struct {
	start time.Time
}

func NewTimer(now time.Time) Timer { return Timer{start: now} }

func (t Timer) Elapsed(now time.Time) time.Duration { return now.Sub(t.start) }

// ShouldReport implements the logarithmic row-count report cadence:
// every 100 below 1,000; every 1,000 below 10,000; every 10,000 below
// 100,000; every 100,000 thereafter.
func ShouldReport(count int64) bool {
	switch {
	case count < 1_000:
		return count%100 == 0
	case count < 10_000:
		return count%1_000 == 0
	case count < 100_000:
		return count%10_000 == 0
	default:
		return count%100_000 == 0
	}
}

// Reporter emits one progress line per call, carrying table, label, count,
// optional total, elapsed wall clock, throughput and ETA when total is
// known.
type Reporter struct {
	log zerolog.Logger
}

func NewReporter(log zerolog.Logger) Reporter { return Reporter{log: log} }

func (r Reporter) Progress(table, label string, count int64, total *int64, elapsed time.Duration) {
	ev := r.log.Info().
		Str("table", table).
		Str("label", label).
		Str("count", humanize.Comma(count)).
		Str("elapsed", elapsed.Round(time.Millisecond).String())

	if elapsed > 0 {
		perSec := float64(count) / elapsed.Seconds()
		ev = ev.Str("throughput", fmt.Sprintf("%s rows/sec", humanize.Comma(int64(perSec))))
		if total != nil && perSec > 0 {
			remaining := float64(*total-count) / perSec
			if remaining > 0 {
				ev = ev.Str("eta", time.Duration(remaining*float64(time.Second)).Round(time.Second).String())
			}
		}
	}
	if total != nil {
		ev = ev.Str("total", humanize.Comma(*total))
	}
	ev.Msg("progress")
}

// RSS holds the current and peak memory figures. They are not read from
// the OS: Go's stdlib has no cross-platform RSS call; runtime.MemStats'
// Sys is the nearest portable proxy, used here in place of a
// process-metrics library such as shirou/gopsutil (see DESIGN.md).
type RSS struct {
	Current uint64
	Peak    uint64
}

var peakRSS uint64

// ReadRSS samples runtime.MemStats.Sys as the current figure and tracks
// the maximum ever observed within the process as "peak".
func ReadRSS() RSS {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.Sys > peakRSS {
		peakRSS = m.Sys
	}
	return RSS{Current: m.Sys, Peak: peakRSS}
}

func (r RSS) String() string {
	return fmt.Sprintf("current=%s peak=%s", humanize.Bytes(r.Current), humanize.Bytes(r.Peak))
}

// Summary is the end-of-run line emitted regardless of exit status:
// elapsed wall clock, rows read+written, peak RSS.
type Summary struct {
	RunID   string
	Elapsed time.Duration
	RwCount int64
	Peak    RSS
}

func (s Summary) Log(log zerolog.Logger) {
	log.Info().
		Str("run_id", s.RunID).
		Str("elapsed", s.Elapsed.Round(time.Millisecond).String()).
		Str("rows_rw", humanize.Comma(s.RwCount)).
		Str("peak_rss", humanize.Bytes(s.Peak.Peak)).
		Msg("run summary")
}
