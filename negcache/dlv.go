package negcache

import (
	"time"

	"github.com/negcache/negcache/names"
	"github.com/negcache/negcache/rrsetcache"
)

// Absence is the result of a DLVLookup probe.
type Absence int

const (
	// Unproven means the cache holds no sufficient proof either way.
	Unproven Absence = iota
	// ProvenAbsent means the cache holds a validated NXDOMAIN-style
	// proof that name does not exist.
	ProvenAbsent
)

// DLVLookup implements spec §4.7: a lightweight predicate answering
// whether name is provably absent under class, using only the negative
// cache and the RRset cache. It performs the same lookups as the first
// two steps of GetMessage but returns a boolean rather than a
// constructed message. Expired denials encountered are removed as a
// side effect.
func (c *Cache) DLVLookup(class uint16, name string, rrsets rrsetcache.Cache, now time.Time) Absence {
	name = names.Canonical(name)

	for attempt := 0; attempt < 2; attempt++ {
		absent, retry := c.tryProveAbsence(class, name, rrsets)
		if !retry {
			if absent {
				return ProvenAbsent
			}

			return Unproven
		}
	}

	return Unproven
}

func (c *Cache) tryProveAbsence(class uint16, name string, rrsets rrsetcache.Cache) (absent, retry bool) {
	c.mu.Lock()

	zone, ok := c.closestEncloser(class, name)
	if !ok {
		c.mu.Unlock()
		return false, false
	}

	covering, exact, found := c.coveringDenial(zone, c.denialTarget(zone, name))
	if !found || exact {
		c.mu.Unlock()
		return false, false
	}

	p, ok := c.buildNameErrorProof(zone, name, covering)
	c.mu.Unlock()

	if !ok {
		return false, false
	}

	expired := false

	for _, n := range p.nodes() {
		if _, handle, ok := fetchDenial(zone, n, rrsets); !ok {
			c.expireAndRemove(rrsets, n, handle)
			expired = true
		}
	}

	if expired {
		return false, true
	}

	c.mu.Lock()
	for _, n := range p.nodes() {
		c.touch(n)
	}
	c.mu.Unlock()

	return true, false
}
