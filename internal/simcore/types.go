package simcore

import (
	"encoding/json"
	"fmt"
)

// Source identifies which upstream class of feed produced a tick.
type Source int

const (
	SourceDex Source = iota
	SourceOracle
)

func (s Source) String() string {
	switch s {
	case SourceDex:
		return "dex"
	case SourceOracle:
		return "chainlink"
	default:
		return "unknown"
	}
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Source) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "dex":
		*s = SourceDex
	case "chainlink":
		*s = SourceOracle
	default:
		return fmt.Errorf("simcore: unknown source %q", str)
	}
	return nil
}

// PriceTick is a single published observation. See spec §3 for the
// invariants: Price > 0; SrcSeq strictly increases within a feed; Stale
// implies the generation gap exceeded the configured staleness threshold.
type PriceTick struct {
	TS      uint64  `json:"ts"`
	Pair    string  `json:"pair"`
	Price   float64 `json:"price"`
	Source  Source  `json:"source"`
	SrcSeq  uint64  `json:"src_seq"`
	DelayMs uint32  `json:"delay_ms"`
	Stale   bool    `json:"stale"`
}

// wireFrame is PriceTick plus the wire-level "type" discriminator. It
// exists only at the JSON boundary; internal code passes PriceTick around
// undecorated.
type wireFrame struct {
	Type string `json:"type"`
	PriceTick
}

// MarshalFrame serializes a tick to its WebSocket wire representation
// (spec §6): {"type":"price", ...tick fields}.
func MarshalFrame(t PriceTick) ([]byte, error) {
	return json.Marshal(wireFrame{Type: "price", PriceTick: t})
}

// ParseFrame parses a wire frame back into a PriceTick, discarding the
// "type" discriminator. Used by tests exercising the round-trip property
// (spec P7).
func ParseFrame(b []byte) (PriceTick, error) {
	var f wireFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return PriceTick{}, err
	}
	return f.PriceTick, nil
}

// SubscriptionAck is the single frame sent immediately after a WebSocket
// upgrade is accepted (spec §4.6).
type SubscriptionAck struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NewSubscriptionAck builds the fixed subscription handshake frame for a
// feed id ("dex_ticks" or "oracle_prices").
func NewSubscriptionAck(feedID string) SubscriptionAck {
	return SubscriptionAck{Type: "subscription", ID: feedID, Status: "subscribed"}
}

// PriceSnapshot is the shape returned by the HTTP snapshot endpoints
// (spec §4.7, §6).
type PriceSnapshot struct {
	Prices     []PriceTick `json:"prices"`
	ServerTime uint64      `json:"server_time"`
}
