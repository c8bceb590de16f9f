// Package metrics provides the Recorder interface, a noop implementation and an in-memory counter.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Recorder is the interface for recording operational metrics of the service.
type Recorder interface {
	RecordEncode(payloadBytes int)
	RecordDecode(payloadBytes int)
	RecordCacheHit()
	RecordCacheMiss()
	RecordLatency(op string, d time.Duration)
	RecordError(op string)
}

// Noop is a Recorder that discards all data.
type Noop struct{}

func (Noop) RecordEncode(payloadBytes int)            {}
func (Noop) RecordDecode(payloadBytes int)            {}
func (Noop) RecordCacheHit()                          {}
func (Noop) RecordCacheMiss()                         {}
func (Noop) RecordLatency(op string, d time.Duration) {}
func (Noop) RecordError(op string)                    {}

// Counter is a Recorder keeping running totals in memory. The zero value is ready to use.
type Counter struct {
	encodes      atomic.Int64
	decodes      atomic.Int64
	encodedBytes atomic.Int64
	decodedBytes atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64

	mu      sync.Mutex
	errors  map[string]int64
	latency map[string]time.Duration
}

// Snapshot is a point-in-time copy of a Counter.
type Snapshot struct {
	Encodes      int64
	Decodes      int64
	EncodedBytes int64
	DecodedBytes int64
	CacheHits    int64
	CacheMisses  int64
	Errors       map[string]int64
	Latency      map[string]time.Duration // Total time spent per op.
}

func (c *Counter) RecordEncode(payloadBytes int) {
	c.encodes.Add(1)
	c.encodedBytes.Add(int64(payloadBytes))
}

func (c *Counter) RecordDecode(payloadBytes int) {
	c.decodes.Add(1)
	c.decodedBytes.Add(int64(payloadBytes))
}

func (c *Counter) RecordCacheHit()  { c.cacheHits.Add(1) }
func (c *Counter) RecordCacheMiss() { c.cacheMisses.Add(1) }

func (c *Counter) RecordLatency(op string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latency == nil {
		c.latency = make(map[string]time.Duration)
	}
	c.latency[op] += d
}

func (c *Counter) RecordError(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errors == nil {
		c.errors = make(map[string]int64)
	}
	c.errors[op]++
}

// Snapshot returns the current totals.
func (c *Counter) Snapshot() Snapshot {
	s := Snapshot{
		Encodes:      c.encodes.Load(),
		Decodes:      c.decodes.Load(),
		EncodedBytes: c.encodedBytes.Load(),
		DecodedBytes: c.decodedBytes.Load(),
		CacheHits:    c.cacheHits.Load(),
		CacheMisses:  c.cacheMisses.Load(),
		Errors:       make(map[string]int64),
		Latency:      make(map[string]time.Duration),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.errors {
		s.Errors[k] = v
	}
	for k, v := range c.latency {
		s.Latency[k] = v
	}
	return s
}
