package simcore

import "time"

// PublicationPolicy decides, per generated tick, whether the Ticker Loop
// should proceed to the drop/broadcast/dup stage of the fault pipeline
// (spec §4.4). Evaluate must be a pure decision; Commit records the
// "intent to publish" and is only called when Evaluate returned true —
// including when the fault pipeline subsequently drops the frame, per
// the spec's explicit heartbeat-reset rule.
type PublicationPolicy interface {
	Evaluate(price float64, now time.Time) bool
	Commit(price float64, now time.Time)
}

// DexPolicy publishes every generated tick unconditionally (spec §4.4
// "DEX policy").
type DexPolicy struct{}

func (DexPolicy) Evaluate(price float64, now time.Time) bool { return true }
func (DexPolicy) Commit(price float64, now time.Time)        {}

// OraclePolicy gates publication on price deviation or a heartbeat
// timeout (spec §4.4 "Oracle policy"). last_published_price and
// last_publish_time are unset until the first Commit.
type OraclePolicy struct {
	DeviationBps uint32
	HeartbeatMs  uint64

	hasPublished       bool
	lastPublishedPrice float64
	lastPublishTime    time.Time
}

func NewOraclePolicy(deviationBps uint32, heartbeatMs uint64) *OraclePolicy {
	return &OraclePolicy{DeviationBps: deviationBps, HeartbeatMs: heartbeatMs}
}

func (p *OraclePolicy) Evaluate(price float64, now time.Time) bool {
	if !p.hasPublished {
		return true
	}

	deviation := (price - p.lastPublishedPrice) / p.lastPublishedPrice
	if deviation < 0 {
		deviation = -deviation
	}
	deviationBps := uint32(deviation * 10000.0)
	if deviationBps >= p.DeviationBps {
		return true
	}

	elapsed := now.Sub(p.lastPublishTime)
	if uint64(elapsed.Milliseconds()) >= p.HeartbeatMs {
		return true
	}

	return false
}

// Commit records price/now as the last publication intent, whether or
// not the fault pipeline goes on to drop the resulting frame.
func (p *OraclePolicy) Commit(price float64, now time.Time) {
	p.hasPublished = true
	p.lastPublishedPrice = price
	p.lastPublishTime = now
}

func (p *OraclePolicy) LastPublishedPrice() (float64, bool) {
	return p.lastPublishedPrice, p.hasPublished
}
