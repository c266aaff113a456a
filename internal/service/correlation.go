package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CorrelationID hashes eventID, requester and the timestamp into a memo.
// The same inputs always give the same memo.
func CorrelationID(eventID, requester string, unixNano int64) uint64 {
	return xxhash.Sum64String(eventID + "_" + requester + "_" + strconv.FormatInt(unixNano, 10))
}

// Generator derives memos for new reservations. Two calls in the same
// process never use the same timestamp, so reservations made in the same
// instant by the same requester still get distinct memos.
type Generator struct {
	mu   sync.Mutex
	last int64
}

// NewGenerator returns a ready Generator.
func NewGenerator() *Generator { return &Generator{} }

// Generate returns the memo for a reservation of eventID by requester at now.
func (g *Generator) Generate(eventID, requester string, now time.Time) uint64 {
	g.mu.Lock()
	ts := now.UnixNano()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	g.mu.Unlock()
	return CorrelationID(eventID, requester, ts)
}
