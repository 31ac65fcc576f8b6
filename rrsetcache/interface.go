// Package rrsetcache describes the collaborator the negative cache reads
// positive answers from. The negative cache never stores RRsets itself: it
// asks its collaborator for the records it needs to build a denial proof
// (the zone's SOA, an NSEC/NSEC3 owner's bitmap) and lets the collaborator
// own their TTLs and eviction.
//
// Cache is deliberately narrow. A production resolver's RRset cache does
// far more (prefetching, negative-answer storage, size accounting of its
// own); this interface only names the slice of that contract the negative
// cache depends on.
package rrsetcache

import (
	"time"

	"github.com/miekg/dns"
)

// Handle identifies a specific cached entry so it can later be marked
// expired without a second name/type/class lookup.
type Handle interface{}

// Cache is the read-side contract the negative cache uses to pull the
// positive records (SOA, NSEC, NSEC3) that back a denial proof.
type Cache interface {
	// Lookup returns the cached RRset for owner/rtype/class, its remaining
	// TTL, a Handle for later invalidation, and whether it was found.
	Lookup(owner string, rtype, class uint16) (rrset []dns.RR, ttl time.Duration, handle Handle, ok bool)

	// MarkExpired evicts the entry identified by handle immediately,
	// regardless of its remaining TTL. Used when the negative cache
	// discovers a record it depended on has gone stale (missing or with no
	// TTL left while a proof is being assembled). A nil handle is ignored.
	MarkExpired(handle Handle)
}
