package simcore

import (
	"sync"

	"go.uber.org/zap"
)

// Sink is one connected WebSocket subscriber's writable side (spec
// glossary). Send delivers one already-serialized frame; a returned error
// marks that write as failed without affecting other sinks.
type Sink interface {
	ID() string
	Send(frame []byte) error
}

// Registry is the set of connected sinks. Add/Remove/Snapshot are all
// safe under concurrent invocation (spec §4.5). Snapshot copies the set
// under a short read lock, so fan-out iterates the copy instead of holding
// a lock across network writes, and a slow sink does not stall
// adds/removes from other sessions.
type Registry struct {
	mu    sync.RWMutex
	sinks map[Sink]struct{}
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[Sink]struct{})}
}

func (r *Registry) Add(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[s] = struct{}{}
}

func (r *Registry) Remove(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, s)
}

// Snapshot returns a point-in-time copy of the current sink set. The
// caller iterates the copy, so concurrent Add/Remove calls during
// iteration are safe and simply invisible to that pass.
func (r *Registry) Snapshot() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sink, 0, len(r.sinks))
	for s := range r.sinks {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// Broadcaster serializes a tick once and fans it out to every sink in the
// registry's current snapshot, isolating per-sink write failures (spec
// §4.5). A failing sink is logged and left in the registry — removal only
// happens from the session handler that owns that sink's read loop.
type Broadcaster struct {
	registry *Registry
	snapshot *SnapshotStore
	metrics  *Metrics
	logger   *zap.Logger
}

func NewBroadcaster(registry *Registry, snapshot *SnapshotStore, metrics *Metrics, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, snapshot: snapshot, metrics: metrics, logger: logger}
}

// Broadcast serializes tick and writes it to every current sink,
// recording it in the snapshot store. It does not touch ws_frames_sent or
// ws_frames_duplicated: spec §4.3 steps 8 and 9 count fault-pipeline
// *decisions*, not fan-out passes, so the Ticker Loop — which knows
// whether a given broadcast is the original or the duplicate — owns
// those increments. Per-sink write failures are warn-logged and do not
// abort the fan-out.
func (b *Broadcaster) Broadcast(tick PriceTick) error {
	frame, err := MarshalFrame(tick)
	if err != nil {
		return err
	}

	b.snapshot.Put(tick)

	for _, sink := range b.registry.Snapshot() {
		if err := sink.Send(frame); err != nil {
			b.logger.Warn("broadcast write failed",
				zap.String("sink", sink.ID()),
				zap.Uint64("src_seq", tick.SrcSeq),
				zap.Error(err))
			continue
		}
	}

	return nil
}
