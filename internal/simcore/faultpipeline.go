package simcore

import (
	"math/rand/v2"
	"time"
)

// FaultPipeline applies the drop/dup/delay/stale/burst decisions from
// spec §4.3, evaluated from the ticker's own PRNG stream (never the price
// engine's). Reorder (p_reorder) and disconnect windows are accepted in
// configuration but implemented as no-ops here — spec §4.3/§9 explicitly
// permits this and requires it be documented: this simulator does not
// reorder frames or close/reopen the listener on a schedule.
type FaultPipeline struct {
	rng *rand.Rand
	cfg TickerLoopConfig
}

func NewFaultPipeline(rng *rand.Rand, cfg TickerLoopConfig) *FaultPipeline {
	return &FaultPipeline{rng: rng, cfg: cfg}
}

// SampleTickDelay draws the inter-tick delay, applying burst-mode
// clamping when configured (spec §4.3 step 1).
func (f *FaultPipeline) SampleTickDelay() time.Duration {
	tickMs := SampleRangeU64(f.rng, f.cfg.TickMsRange.Min, f.cfg.TickMsRange.Max)

	if f.cfg.BurstMode {
		if Happens(f.rng, 0.5) {
			if tickMs > f.cfg.BurstOnMs {
				tickMs = f.cfg.BurstOnMs
			}
		} else if tickMs < f.cfg.BurstOffMs {
			tickMs = f.cfg.BurstOffMs
		}
	}

	return time.Duration(tickMs) * time.Millisecond
}

// SampleDelayMs draws the informational simulated one-way delay (spec
// §4.3 step 4: dex_latency_ms for the DEX feed, ws_jitter_ms for Oracle).
func (f *FaultPipeline) SampleDelayMs() uint32 {
	return uint32(SampleRangeU64(f.rng, f.cfg.DelayRange.Min, f.cfg.DelayRange.Max))
}

// Stale reports whether the wall-clock gap since the previous generated
// tick exceeds the configured staleness threshold (spec §4.3 step 5).
func (f *FaultPipeline) Stale(elapsed time.Duration) bool {
	return elapsed > time.Duration(f.cfg.StaleAfterMs)*time.Millisecond
}

// ShouldDrop draws the drop decision (spec §4.3 step 7).
func (f *FaultPipeline) ShouldDrop() bool {
	return Happens(f.rng, f.cfg.PDrop)
}

// ShouldDuplicate draws the duplicate decision (spec §4.3 step 9).
func (f *FaultPipeline) ShouldDuplicate() bool {
	return Happens(f.rng, f.cfg.PDup)
}
