// Package negcache implements the aggressive negative cache of a
// recursive DNS resolver: it remembers authenticated NSEC/NSEC3 denials
// of existence across queries and synthesizes NXDOMAIN/NODATA replies
// from them without contacting an authoritative server.
//
// The zone index, per-zone denial indices, the LRU governor, the ingest
// path and the synthesis path are kept in one package across several
// files rather than split into import-linked packages, because they
// share a single lock and invariants that span all of them (see
// Cache). This mirrors how blocky keeps its DNSSEC validator, NSEC
// matcher, NSEC3 matcher and wildcard matcher together as one
// resolver/dnssec package.
package negcache

import (
	"sync"

	"github.com/negcache/negcache/log"
	"github.com/negcache/negcache/metrics"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"
)

// Cache is the aggressive negative cache (spec §6). All exported
// methods are safe for concurrent use: a single mutex ("the big lock")
// covers the zone index, every denial index, the LRU list and the byte
// counter (spec §5).
type Cache struct {
	mu sync.Mutex

	zones *btree.BTreeG[*Zone]

	lruHead, lruTail *denialNode
	used             int
	capBytes         int

	nsec3MaxIter        uint16
	hardenAlgoDowngrade bool

	zoneCount       int
	leafDenialCount int
	evictions       int
	ingested        int
	synthesized     int

	logger  *logrus.Entry
	metrics *metrics.NegCacheMetrics
}

// New creates an empty Cache with the given byte budget and NSEC3
// iteration policy (spec §6 "create"). A capBytes of 0 accepts nothing:
// every insert would immediately evict itself. hardenAlgoDowngrade
// controls ensureZone's response to a zone's NSEC3PARAM changing: see
// ensureZone. Prometheus collectors are initialized and registered
// unconditionally, the way resolver/dnssec_validator.go's
// initializeMetrics does for the DNSSEC validator.
func New(capBytes int, nsec3MaxIter uint16, hardenAlgoDowngrade bool) *Cache {
	return &Cache{
		zones:               newZoneIndex(),
		capBytes:            capBytes,
		nsec3MaxIter:        nsec3MaxIter,
		hardenAlgoDowngrade: hardenAlgoDowngrade,
		logger:              log.PrefixedLog("negcache"),
		metrics:             metrics.NewNegCacheMetrics(),
	}
}

// recordUsage syncs the byte-in-use gauge to the current occupancy.
// Called after every mutation of c.used, under c.mu.
func (c *Cache) recordUsage() {
	c.metrics.SetBytesInUse(c.used)
}

// Destroy releases c's resources. Per spec §6 it requires no other
// goroutine is concurrently calling into c; Go's garbage collector
// reclaims the index trees once c is no longer referenced, so this only
// clears the recency list to break the intrusive pointer cycles
// eagerly rather than leaving that to the collector.
func Destroy(c *Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n := c.lruHead; n != nil; {
		next := n.lruNext
		n.lruPrev, n.lruNext = nil, nil
		n = next
	}

	c.lruHead, c.lruTail = nil, nil
	c.zones = newZoneIndex()
	c.used = 0
	c.recordUsage()
}

// MemoryInUse implements spec §6 memory_in_use.
func (c *Cache) MemoryInUse() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.used
}

// Stats is a point-in-time snapshot of cache occupancy, exposed for the
// demo CLI and for metrics scraping outside the Prometheus registry.
type Stats struct {
	BytesInUse     int
	BytesCap       int
	Zones          int
	Denials        int
	Evictions      int
	IngestCount    int
	SynthesisCount int
}

// Stats returns a snapshot of the cache's current occupancy and
// lifetime counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		BytesInUse:     c.used,
		BytesCap:       c.capBytes,
		Zones:          c.zoneCount,
		Denials:        c.leafDenialCount,
		Evictions:      c.evictions,
		IngestCount:    c.ingested,
		SynthesisCount: c.synthesized,
	}
}
