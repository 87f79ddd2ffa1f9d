// Package metrics holds the process-wide monotonic counters. Counters
// are lock-free; readers get point-in-time snapshots.
package metrics

import "sync/atomic"

// Counter is a monotonic event counter safe for concurrent use.
type Counter struct {
	v atomic.Uint64
}

func (c *Counter) Inc()          { c.v.Add(1) }
func (c *Counter) Add(n uint64)  { c.v.Add(n) }
func (c *Counter) Value() uint64 { return c.v.Load() }

// Registry is the fixed set of counters the pipeline maintains.
type Registry struct {
	TileHits        Counter
	TileMisses      Counter
	FieldHits       Counter
	FieldMisses     Counter
	FieldCoalesced  Counter
	DecodeFailures  Counter
	OverloadRejects Counter
	RendersDone     Counter
}

// Snapshot returns the counter values as a map for the health
// endpoint.
func (r *Registry) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"tile_hits":        r.TileHits.Value(),
		"tile_misses":      r.TileMisses.Value(),
		"field_hits":       r.FieldHits.Value(),
		"field_misses":     r.FieldMisses.Value(),
		"field_coalesced":  r.FieldCoalesced.Value(),
		"decode_failures":  r.DecodeFailures.Value(),
		"overload_rejects": r.OverloadRejects.Value(),
		"renders_done":     r.RendersDone.Value(),
	}
}
