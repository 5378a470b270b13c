// Package stats implements the MCU-side statistics counters (§4.H):
// sample/interrupt counts, CRC errors, DAC lost/req-exceed counters, and
// per-channel ADC value statistics. Fields are updated lock-free from the
// sample loop and the RPMSG receive task and read concurrently by a
// periodic printer, so every counter is a sync/atomic value.
package stats

import (
	"fmt"
	"sync/atomic"

	"github.com/binp-dev/tornado/internal/ipp"
	"go.uber.org/zap"
)

// ValueStats tracks last/min/max/average for one channel, updated
// lock-free by the sample loop only.
type ValueStats struct {
	last  atomic.Int32
	min   atomic.Int32
	max   atomic.Int32
	sum   atomic.Int64
	count atomic.Uint64
}

// Update records one new sample.
func (v *ValueStats) Update(p ipp.Point) {
	v.last.Store(int32(p))
	if v.count.Add(1) == 1 {
		v.min.Store(int32(p))
		v.max.Store(int32(p))
	} else {
		for {
			cur := v.min.Load()
			if int32(p) >= cur || v.min.CompareAndSwap(cur, int32(p)) {
				break
			}
		}
		for {
			cur := v.max.Load()
			if int32(p) <= cur || v.max.CompareAndSwap(cur, int32(p)) {
				break
			}
		}
	}
	v.sum.Add(int64(p))
}

// Reset zeroes the channel's statistics.
func (v *ValueStats) Reset() {
	v.last.Store(0)
	v.min.Store(0)
	v.max.Store(0)
	v.sum.Store(0)
	v.count.Store(0)
}

// ValueSnapshot is an immutable copy of a ValueStats, suitable for
// printing or returning from an API.
type ValueSnapshot struct {
	Last  ipp.Point
	Min   ipp.Point
	Max   ipp.Point
	Avg   float64
	Count uint64
}

// Snapshot returns an immutable copy of v. Avg is zero when Count is
// zero, matching the original's "tolerates count == 0" contract.
func (v *ValueStats) Snapshot() ValueSnapshot {
	count := v.count.Load()
	s := ValueSnapshot{
		Last:  ipp.Point(v.last.Load()),
		Min:   ipp.Point(v.min.Load()),
		Max:   ipp.Point(v.max.Load()),
		Count: count,
	}
	if count != 0 {
		s.Avg = float64(v.sum.Load()) / float64(count)
	}
	return s
}

// DacStats tracks the DAC-side lost/req-exceed counters.
type DacStats struct {
	LostEmpty atomic.Uint64
	LostFull  atomic.Uint64
	ReqExceed atomic.Uint64
}

// AdcChannelStats tracks one ADC channel's lost-full counter and value
// statistics.
type AdcChannelStats struct {
	LostFull atomic.Uint64
	Values   ValueStats
}

// Stats is the full statistics block for one MCU session.
type Stats struct {
	SampleCount       atomic.Uint64
	MaxIntrsPerSample atomic.Uint32
	CrcErrorCount     atomic.Uint64
	Dac               DacStats
	Adc               [ipp.AdcCount]AdcChannelStats
}

// New creates a zeroed Stats block.
func New() *Stats {
	return &Stats{}
}

// Reset zeroes every counter, matching the MCU's StatsReset message and
// the host's reset_statistics() call.
func (s *Stats) Reset() {
	s.SampleCount.Store(0)
	s.MaxIntrsPerSample.Store(0)
	s.CrcErrorCount.Store(0)
	s.Dac.LostEmpty.Store(0)
	s.Dac.LostFull.Store(0)
	s.Dac.ReqExceed.Store(0)
	for i := range s.Adc {
		s.Adc[i].LostFull.Store(0)
		s.Adc[i].Values.Reset()
	}
}

// Snapshot is an immutable copy of Stats, suitable for printing or
// returning through an API without racing the sample loop.
type Snapshot struct {
	SampleCount       uint64
	MaxIntrsPerSample uint32
	CrcErrorCount     uint64
	DacLostEmpty      uint64
	DacLostFull       uint64
	DacReqExceed      uint64
	Adc               [ipp.AdcCount]AdcChannelSnapshot
}

// AdcChannelSnapshot is an immutable copy of one channel's counters.
type AdcChannelSnapshot struct {
	LostFull uint64
	Values   ValueSnapshot
}

// Snapshot takes an immutable copy of every counter.
func (s *Stats) Snapshot() Snapshot {
	out := Snapshot{
		SampleCount:       s.SampleCount.Load(),
		MaxIntrsPerSample: s.MaxIntrsPerSample.Load(),
		CrcErrorCount:     s.CrcErrorCount.Load(),
		DacLostEmpty:      s.Dac.LostEmpty.Load(),
		DacLostFull:       s.Dac.LostFull.Load(),
		DacReqExceed:      s.Dac.ReqExceed.Load(),
	}
	for i := range s.Adc {
		out.Adc[i] = AdcChannelSnapshot{
			LostFull: s.Adc[i].LostFull.Load(),
			Values:   s.Adc[i].Values.Snapshot(),
		}
	}
	return out
}

// Print logs a formatted summary at info level, matching stats_print's
// one-line-per-counter style. Called periodically every
// STATS_REPORT_PERIOD_MS; never resets.
func (s *Stats) Print(log *zap.Logger) {
	snap := s.Snapshot()
	log.Info("stats",
		zap.Uint64("sample_count", snap.SampleCount),
		zap.Uint32("max_intrs_per_sample", snap.MaxIntrsPerSample),
		zap.Uint64("crc_error_count", snap.CrcErrorCount),
		zap.Uint64("dac_lost_empty", snap.DacLostEmpty),
		zap.Uint64("dac_lost_full", snap.DacLostFull),
		zap.Uint64("dac_req_exceed", snap.DacReqExceed),
	)
	for i, ch := range snap.Adc {
		if ch.Values.Count == 0 {
			log.Info(fmt.Sprintf("stats.adc[%d]", i), zap.Uint64("lost_full", ch.LostFull))
			continue
		}
		log.Info(fmt.Sprintf("stats.adc[%d]", i),
			zap.Uint64("lost_full", ch.LostFull),
			zap.Int32("last", int32(ch.Values.Last)),
			zap.Int32("min", int32(ch.Values.Min)),
			zap.Int32("max", int32(ch.Values.Max)),
			zap.Float64("avg", ch.Values.Avg),
		)
	}
}
