package simcore

import (
	"context"
	"math/rand/v2"
	"time"
)

// Clock abstracts wall-clock reads and sleeping so the Ticker Loop is
// testable without waiting on real time, mirroring the teacher's
// generator.Clock interface (deterministic test doubles for Now/Sleep).
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock is the production Clock backed by the standard library.
type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// TickerLoopConfig is the fault-pipeline configuration shared by both
// feeds (spec §4.3). DelayRange is dex_latency_ms for the DEX feed and
// ws_jitter_ms for the Oracle feed — it is informational only per spec
// and does not affect delivery timing.
type TickerLoopConfig struct {
	Pair         string
	TickMsRange  Range[uint64]
	BurstMode    bool
	BurstOnMs    uint64
	BurstOffMs   uint64
	DelayRange   Range[uint64]
	PDrop        float64
	PDup         float64
	StaleAfterMs uint64
}

// TickerLoop drives time, invokes the Price Engine, the Fault Pipeline,
// the Publication Policy, and the Broadcaster (spec §4, data-flow
// diagram). The same loop implementation serves both feeds; the DEX vs.
// Oracle behavioral difference lives entirely in the PublicationPolicy
// injected at construction (DexPolicy always publishes; OraclePolicy
// gates on deviation/heartbeat) — this is the generalization the spec's
// §9 "open question" asks implementers to codify explicitly.
type TickerLoop struct {
	fault       *FaultPipeline
	engine      PriceEngine
	policy      PublicationPolicy
	broadcaster *Broadcaster
	metrics     *Metrics
	clock       Clock
	source      Source
	staleAfter  uint64

	seq          uint64
	hasLastTick  bool
	lastTickTime time.Time
}

// NewTickerLoop constructs a ticker loop. rng must be the ticker's own
// labeled stream (e.g. "DEX_TICKER"/"ORACLE_TICKER"), distinct from the
// price engine's stream, so fault decisions never perturb the price
// trajectory (spec §4.1).
func NewTickerLoop(cfg TickerLoopConfig, engine PriceEngine, policy PublicationPolicy, broadcaster *Broadcaster, metrics *Metrics, clock Clock, rng *rand.Rand, source Source) *TickerLoop {
	return &TickerLoop{
		fault:       NewFaultPipeline(rng, cfg),
		engine:      engine,
		policy:      policy,
		broadcaster: broadcaster,
		metrics:     metrics,
		clock:       clock,
		source:      source,
		staleAfter:  cfg.StaleAfterMs,
	}
}

// Run drives the loop until ctx is canceled. Per spec §5/§7, no per-tick
// error is allowed to end the loop early — the only exit is ctx
// cancellation.
func (t *TickerLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t.clock.Sleep(t.fault.SampleTickDelay())

		now := t.clock.Now()
		tsMs := uint64(now.UnixMilli())
		delayMs := t.fault.SampleDelayMs()

		var stale bool
		if t.hasLastTick {
			stale = t.fault.Stale(now.Sub(t.lastTickTime))
		}

		// The seq attached here is provisional; it is only committed to
		// t.seq (and hence visible to subscribers) if the publication
		// policy accepts the tick.
		tick := t.engine.NextTick(tsMs, t.seq+1, t.source, delayMs, stale)

		if t.policy.Evaluate(tick.Price, now) {
			// Commit runs even if the fault pipeline drops the frame
			// below — "intent to publish" resets the heartbeat clock
			// regardless (spec §4.4).
			t.policy.Commit(tick.Price, now)
			t.seq++
			tick.SrcSeq = t.seq
			t.metrics.IncGenerated()

			if t.fault.ShouldDrop() {
				t.metrics.IncDropped()
			} else {
				_ = t.broadcaster.Broadcast(tick)
				t.metrics.IncSent()
				if t.fault.ShouldDuplicate() {
					_ = t.broadcaster.Broadcast(tick)
					t.metrics.IncDuplicated()
				}
			}
		}

		t.hasLastTick = true
		t.lastTickTime = now
	}
}
