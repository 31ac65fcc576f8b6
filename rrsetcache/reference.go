package rrsetcache

import (
	"fmt"
	"time"

	"github.com/negcache/negcache/cache/expirationcache"
	"github.com/negcache/negcache/names"

	"github.com/miekg/dns"
)

// entry is the value type stored in the backing expirationcache.
type entry struct {
	rrset []dns.RR
	class uint16
}

// key uniquely identifies an owner/rtype/class triple.
type key string

func makeKey(owner string, rtype, class uint16) key {
	return key(fmt.Sprintf("%d/%d/%s", class, rtype, names.Canonical(owner)))
}

// Reference is an in-memory Cache backed by the same
// expirationcache.ExpiringLRUCache used elsewhere in the ambient stack. It
// exists for tests and the demo CLI: a real deployment would satisfy the
// Cache interface with its own resolver's RRset cache instead.
type Reference struct {
	backing *expirationcache.ExpiringLRUCache[entry]
}

// NewReference builds a Reference with the given maximum entry count. A
// maxSize of 0 uses the backing cache's default capacity.
func NewReference(maxSize uint) *Reference {
	opts := []expirationcache.CacheOption[entry]{}
	if maxSize > 0 {
		opts = append(opts, expirationcache.WithMaxSize[entry](maxSize))
	}

	return &Reference{backing: expirationcache.NewCache[entry](opts...)}
}

// Store inserts an RRset under owner/rtype/class with the given TTL. Not
// part of the Cache interface: it is how tests and the demo CLI seed the
// reference cache, mirroring how a real RRset cache would populate itself
// from upstream responses.
func (r *Reference) Store(owner string, rtype, class uint16, rrset []dns.RR, ttl time.Duration) {
	k := makeKey(owner, rtype, class)
	r.backing.Put(string(k), &entry{rrset: rrset, class: class}, ttl)
}

// Lookup implements Cache.
func (r *Reference) Lookup(owner string, rtype, class uint16) (rrset []dns.RR, ttl time.Duration, handle Handle, ok bool) {
	k := makeKey(owner, rtype, class)

	val, remain := r.backing.Get(string(k))
	if val == nil {
		return nil, 0, nil, false
	}

	return val.rrset, remain, k, true
}

// MarkExpired implements Cache.
func (r *Reference) MarkExpired(handle Handle) {
	k, ok := handle.(key)
	if !ok {
		return
	}

	r.backing.Remove(string(k))
}
