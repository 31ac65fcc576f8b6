package negcache

import (
	"fmt"
	"slices"
	"time"

	"github.com/negcache/negcache/names"
	"github.com/negcache/negcache/rrsetcache"

	"github.com/miekg/dns"
)

// proof is the set of denial nodes a synthesized answer depends on.
// Every node in it gets touched (LRU) on success and is the retry
// target if its backing RRset turns out to be missing or expired.
type proof struct {
	zone       *Zone
	covering   *denialNode // NSEC NXDOMAIN: the qname-covering node. NSEC3 NXDOMAIN: the closest-encloser node. NODATA: the exact-match node.
	wildcard   *denialNode // NXDOMAIN only.
	nextCloser *denialNode // NSEC3 NXDOMAIN only, distinct from covering when NSEC3.
}

func (p *proof) nodes() []*denialNode {
	out := make([]*denialNode, 0, 3)
	for _, n := range []*denialNode{p.covering, p.wildcard, p.nextCloser} {
		if n != nil {
			out = append(out, n)
		}
	}

	return out
}

// GetMessage implements spec §4.6 get_message. It returns ErrNoProof
// when no sufficient proof is cached, or when a proof depends on an
// RRset that turned out to be expired and could not be recovered by a
// single retry.
func (c *Cache) GetMessage(class uint16, qname string, qtype uint16, rrsets rrsetcache.Cache, now time.Time) (*dns.Msg, error) {
	qname = names.Canonical(qname)

	for attempt := 0; attempt < 2; attempt++ {
		msg, retry, err := c.trySynthesize(class, qname, qtype, rrsets, now)
		if !retry {
			return msg, err
		}
	}

	return nil, ErrNoProof
}

func (c *Cache) trySynthesize(
	class uint16, qname string, qtype uint16, rrsets rrsetcache.Cache, now time.Time,
) (msg *dns.Msg, retry bool, err error) {
	c.mu.Lock()

	zone, ok := c.closestEncloser(class, qname)
	if !ok {
		c.mu.Unlock()
		return nil, false, ErrNoProof
	}

	covering, exact, found := c.coveringDenial(zone, c.denialTarget(zone, qname))
	if !found {
		c.mu.Unlock()
		return nil, false, ErrNoProof
	}

	if exact {
		p := &proof{zone: zone, covering: covering}
		c.mu.Unlock()

		return c.assembleNoData(zone, p, qname, qtype, rrsets, now)
	}

	p, ok := c.buildNameErrorProof(zone, qname, covering)
	c.mu.Unlock()

	if !ok {
		return nil, false, ErrNoProof
	}

	return c.assembleNameError(zone, p, qname, qtype, rrsets, now)
}

// denialTarget returns the value that must be searched for in the
// zone's denial index for name: the name itself for plain-NSEC zones,
// or its NSEC3 hash (owned under the zone) for NSEC3 zones.
func (c *Cache) denialTarget(zone *Zone, name string) string {
	if zone.params == nil {
		return name
	}

	h, err := zone.hash(name)
	if err != nil {
		return name
	}

	return h + "." + zone.name
}

// coveringDenial implements §4.3 covering_denial: the largest node with
// owner <= target, skipping interior placeholders, verified against
// the record's own next field before being accepted as a genuine
// cover, reporting whether the match was exact ("name exists").
//
// Index adjacency alone is not sufficient: different replies populate
// different subsets of a zone's NSEC/NSEC3 chain over time, and
// eviction removes members, so two denial nodes that are adjacent in
// the btree are not necessarily adjacent in the real chain. Only the
// node whose own (owner, next) interval actually contains target is a
// valid proof.
func (c *Cache) coveringDenial(zone *Zone, target string) (node *denialNode, exact, found bool) {
	canonicalTarget := names.Canonical(target)
	probe := &denialNode{owner: canonicalTarget}

	var result *denialNode

	zone.denials.DescendLessOrEqual(probe, func(n *denialNode) bool {
		if !n.inUse {
			return true
		}

		result = n

		return false
	})

	if result == nil && zone.params != nil {
		// RFC 5155 §7.2.3: the NSEC3 hash ring wraps at the zone apex.
		// A target hash sorting before every cached owner hash in the
		// zone can still be covered, by the record with the largest
		// owner, whose real next field wraps back past the top of the
		// ring down to the bottom.
		zone.denials.Descend(func(n *denialNode) bool {
			if !n.inUse {
				return true
			}

			result = n

			return false
		})
	}

	if result == nil {
		return nil, false, false
	}

	if names.Equal(result.owner, canonicalTarget) {
		return result, true, true
	}

	if !intervalContainsTarget(result.owner, result.next, canonicalTarget) {
		return nil, false, false
	}

	return result, false, true
}

// intervalContainsTarget reports whether target falls in the
// half-open interval [owner, next), the way an NSEC/NSEC3 record's
// (owner, next) pair denies existence of everything in between,
// handling wraparound at the top of the name/hash space (owner ==
// next means the sole record in the chain covers everything; owner >
// next means this is the last record before the chain wraps).
func intervalContainsTarget(owner, next, target string) bool {
	switch {
	case names.Equal(owner, next):
		return true
	case names.Less(owner, next):
		return names.Less(target, next)
	default:
		return !names.Less(target, owner) || names.Less(target, next)
	}
}

// closestEncloserName finds the longest ancestor-or-self of qname
// (within zone) for which a real denial record exists at that exact
// owner, walking one label at a time the way blocky's own
// findClosestEncloser does for NSEC3 (resolver/dnssec/nsec3.go),
// generalized here to plain NSEC as well.
func (c *Cache) closestEncloserName(zone *Zone, qname string) (string, bool) {
	name := names.Canonical(qname)

	for {
		if node, ok := zone.exactDenial(c.denialTarget(zone, name)); ok && node.inUse {
			return name, true
		}

		if names.Equal(name, zone.name) {
			return "", false
		}

		parent, ok := names.Parent(name)
		if !ok {
			return "", false
		}

		name = parent
	}
}

// buildNameErrorProof gathers the denial nodes required for an NXDOMAIN
// proof (spec §4.6 step 2): for plain-NSEC zones, the covering NSEC
// plus a covering NSEC for the wildcard; for NSEC3 zones, the
// closest-encloser NSEC3, the covering next-closer NSEC3, and the
// covering wildcard NSEC3.
func (c *Cache) buildNameErrorProof(zone *Zone, qname string, covering *denialNode) (*proof, bool) {
	ceName, ok := c.closestEncloserName(zone, qname)
	if !ok {
		return nil, false
	}

	wildcardName := "*." + ceName

	wcNode, wcExact, wcFound := c.coveringDenial(zone, c.denialTarget(zone, wildcardName))
	if !wcFound || wcExact {
		return nil, false
	}

	p := &proof{zone: zone, wildcard: wcNode}

	if zone.params == nil {
		p.covering = covering
		return p, true
	}

	ceNode, ok := zone.exactDenial(c.denialTarget(zone, ceName))
	if !ok || !ceNode.inUse {
		return nil, false
	}

	// RFC 5155 §8.3: the proof needs the *next closer* name covered,
	// not necessarily qname itself, when qname sits more than one
	// label below its closest encloser. Ported from blocky's
	// getNextCloser (resolver/dnssec/nsec3.go).
	nc := nextCloserName(qname, ceName)

	ncNode, ncExact, ncFound := c.coveringDenial(zone, c.denialTarget(zone, nc))
	if !ncFound || ncExact {
		return nil, false
	}

	p.covering = ceNode
	p.nextCloser = ncNode

	return p, true
}

// nextCloserName returns the ancestor of qname one label below ceName
// on the path from ceName to qname (RFC 5155 §4.1's "next closer
// name"): the name that, if it existed, would be an immediate child of
// the closest encloser.
func nextCloserName(qname, ceName string) string {
	name := names.Canonical(qname)

	for {
		parent, ok := names.Parent(name)
		if !ok || names.Equal(parent, ceName) {
			return name
		}

		name = parent
	}
}

// fetchDenial resolves a denial node's backing NSEC/NSEC3 RRset from
// the collaborator cache. It is called without the negative cache's
// lock held (spec §5 "RRset-cache lookups during synthesis are
// performed without the negative-cache lock"). handle is always
// returned, even on a miss, so the caller can hand it to
// rrsets.MarkExpired without a second lookup — on a genuine miss it is
// nil and MarkExpired is a no-op.
func fetchDenial(zone *Zone, node *denialNode, rrsets rrsetcache.Cache) ([]dns.RR, rrsetcache.Handle, bool) {
	rrset, ttl, handle, ok := rrsets.Lookup(node.owner, zone.denialRRType(), zone.class)
	if !ok || ttl <= 0 {
		return nil, handle, false
	}

	return copyWithTTL(rrset, ttl), handle, true
}

func fetchSOA(zone *Zone, rrsets rrsetcache.Cache) ([]dns.RR, bool) {
	rrset, ttl, _, ok := rrsets.Lookup(zone.name, dns.TypeSOA, zone.class)
	if !ok || ttl <= 0 {
		return nil, false
	}

	return copyWithTTL(rrset, ttl), true
}

// copyWithTTL returns a deep copy of rrset with each record's TTL set
// to the remaining duration. The RRset cache owns the originals; the
// synthesized reply must not alias or mutate them.
func copyWithTTL(rrset []dns.RR, ttl time.Duration) []dns.RR {
	secs := uint32(ttl.Seconds())

	out := make([]dns.RR, len(rrset))
	for i, rr := range rrset {
		cp := dns.Copy(rr)
		cp.Header().Ttl = secs
		out[i] = cp
	}

	return out
}

// assembleNameError builds the NXDOMAIN reply, or removes every proof
// node whose backing RRset is missing or expired and asks the caller
// to retry.
func (c *Cache) assembleNameError(
	zone *Zone, p *proof, qname string, qtype uint16, rrsets rrsetcache.Cache, now time.Time,
) (*dns.Msg, bool, error) {
	authority := make([]dns.RR, 0, 8)
	expired := false

	for _, n := range p.nodes() {
		rrset, handle, ok := fetchDenial(zone, n, rrsets)
		if !ok {
			c.expireAndRemove(rrsets, n, handle)
			expired = true

			continue
		}

		authority = append(authority, rrset...)
	}

	if expired {
		return nil, true, nil
	}

	soa, ok := fetchSOA(zone, rrsets)
	if !ok {
		return nil, false, ErrNoProof
	}

	authority = append(authority, soa...)

	c.mu.Lock()
	for _, n := range p.nodes() {
		c.touch(n)
	}
	c.synthesized++
	c.metrics.IncSynthesis("nxdomain")
	c.mu.Unlock()

	msg := new(dns.Msg)
	msg.Question = []dns.Question{{Name: qname, Qtype: qtype, Qclass: zone.class}}
	msg.Rcode = dns.RcodeNameError
	msg.Response = true
	msg.Ns = authority

	if err := checkAssembledSize(msg); err != nil {
		return nil, false, err
	}

	return msg, false, nil
}

// assembleNoData builds the NOERROR/empty-answer reply for a direct
// NSEC/NSEC3 match, implementing spec §4.6 step 3.
func (c *Cache) assembleNoData(
	zone *Zone, p *proof, qname string, qtype uint16, rrsets rrsetcache.Cache, now time.Time,
) (*dns.Msg, bool, error) {
	rrset, handle, ok := fetchDenial(zone, p.covering, rrsets)
	if !ok {
		c.expireAndRemove(rrsets, p.covering, handle)
		return nil, true, nil
	}

	bitmap := typeBitmapOf(rrset)
	if bitmap == nil {
		return nil, false, ErrNoProof
	}

	if slices.Contains(bitmap, qtype) {
		// The type is claimed to exist; this cache cannot synthesize an answer for it.
		return nil, false, ErrNoProof
	}

	if slices.Contains(bitmap, dns.TypeCNAME) || slices.Contains(bitmap, dns.TypeDNAME) {
		return nil, false, ErrNoProof
	}

	soa, ok := fetchSOA(zone, rrsets)
	if !ok {
		return nil, false, ErrNoProof
	}

	c.mu.Lock()
	c.touch(p.covering)
	c.synthesized++
	c.metrics.IncSynthesis("nodata")
	c.mu.Unlock()

	msg := new(dns.Msg)
	msg.Question = []dns.Question{{Name: qname, Qtype: qtype, Qclass: zone.class}}
	msg.Rcode = dns.RcodeSuccess
	msg.Response = true
	msg.Ns = append(rrset, soa...)

	if err := checkAssembledSize(msg); err != nil {
		return nil, false, err
	}

	return msg, false, nil
}

// checkAssembledSize packs msg to confirm it fits the DNS wire format
// (spec §7 kind 3, "resource exhaustion during message assembly"): an
// accumulated NSEC3 proof chain (closest encloser + next-closer +
// wildcard, each carrying a type bitmap and RRSIG) can in principle
// exceed the 64KiB message limit despite every individual RRset in the
// RRset cache being well within it. It does not retain the packed
// bytes; msg is still sent through the caller's own encoder.
func checkAssembledSize(msg *dns.Msg) error {
	if _, err := msg.Pack(); err != nil {
		return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}

	return nil
}

func typeBitmapOf(rrset []dns.RR) []uint16 {
	for _, rr := range rrset {
		switch r := rr.(type) {
		case *dns.NSEC:
			return r.TypeBitMap
		case *dns.NSEC3:
			return r.TypeBitMap
		}
	}

	return nil
}

// expireAndRemove implements the "expired proof" error kind (spec §7
// item 4): the denial node is removed and memory_in_use decreases
// accordingly, and the RRset-cache entry it depended on is told to
// evict itself immediately (spec §6 "this subsystem may mark entries
// it considers expired via a separate RRset-cache API") rather than
// linger until its own TTL expires naturally. handle may be nil (the
// RRset was never found at all rather than found-but-expired);
// rrsetcache.Cache.MarkExpired is specified to no-op in that case.
func (c *Cache) expireAndRemove(rrsets rrsetcache.Cache, node *denialNode, handle rrsetcache.Handle) {
	rrsets.MarkExpired(handle)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeDenial(node)
}
