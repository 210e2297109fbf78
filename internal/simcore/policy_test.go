package simcore

import (
	"testing"
	"time"
)

func TestDexPolicy_AlwaysPublishes(t *testing.T) {
	p := DexPolicy{}
	if !p.Evaluate(1, time.Now()) || !p.Evaluate(1e9, time.Now()) {
		t.Fatalf("DexPolicy must always evaluate true")
	}
}

func TestOraclePolicy_FirstTickAlwaysPublishes(t *testing.T) {
	p := NewOraclePolicy(500, 500)
	if !p.Evaluate(100, time.Now()) {
		t.Fatalf("first tick must publish")
	}
}

func TestOraclePolicy_DeviationTrigger(t *testing.T) {
	p := NewOraclePolicy(500, 100000) // 5% deviation, long heartbeat
	now := time.Now()
	p.Commit(100, now)

	// 4% move: below 5% threshold, heartbeat far away.
	if p.Evaluate(104, now.Add(time.Millisecond)) {
		t.Fatalf("4%% move should not cross a 5%% deviation threshold")
	}
	// 5% move: at threshold.
	if !p.Evaluate(105, now.Add(time.Millisecond)) {
		t.Fatalf("5%% move should cross a 5%% deviation threshold")
	}
}

func TestOraclePolicy_HeartbeatTrigger(t *testing.T) {
	p := NewOraclePolicy(10000, 500) // deviation effectively disabled (100%), 500ms heartbeat
	now := time.Now()
	p.Commit(100, now)

	if p.Evaluate(100, now.Add(400*time.Millisecond)) {
		t.Fatalf("should not publish before heartbeat elapses")
	}
	if !p.Evaluate(100, now.Add(500*time.Millisecond)) {
		t.Fatalf("should publish once heartbeat elapses")
	}
}

func TestOraclePolicy_CommitOnDropStillResetsHeartbeat(t *testing.T) {
	p := NewOraclePolicy(10000, 500)
	now := time.Now()
	p.Commit(100, now)
	// Simulate: gate accepted at t=500ms (a fault-pipeline drop follows,
	// but Commit still ran) which must reset the heartbeat clock.
	p.Commit(100, now.Add(500*time.Millisecond))

	if p.Evaluate(100, now.Add(600*time.Millisecond)) {
		t.Fatalf("heartbeat should be measured from the last Commit, not the last successful broadcast")
	}
}
