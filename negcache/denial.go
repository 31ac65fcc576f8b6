package negcache

import (
	"github.com/negcache/negcache/names"
)

// nodeOverhead is the fixed per-node byte cost counted toward the LRU
// governor's byte budget (spec §3 invariant 5: "sum of per-node fixed
// overhead + variable owner-name length"). It approximates the size of
// a denialNode plus its btree slot, not an exact accounting.
const nodeOverhead = 96

// denialNode is a node of a zone's denial index (spec §3 "Denial node").
// Interior nodes (materialized ancestors with no denial of their own)
// have inUse == false and never enter the LRU.
type denialNode struct {
	zone       *Zone
	owner      string // canonical; for NSEC3, the hashed owner + zone name
	next       string // the record's next field, in the same representation as owner
	isNSEC3    bool
	labelCount int
	parent     *denialNode

	inUse    bool
	useCount int

	lruPrev, lruNext *denialNode

	size int
}

func denialLess(a, b *denialNode) bool {
	return names.Less(a.owner, b.owner)
}

// insertDenial implements §4.3 insert_denial: O(log n) insert, creating
// interior ancestors as needed, marking the node in-use, moving it to
// the LRU front, and adjusting use-counts up the parent chain. next is
// the record's own next field (RFC 4034 NextDomain for NSEC, the
// following hash for NSEC3), in the same owner-comparable
// representation as owner; it is what lets coveringDenial verify a
// candidate actually covers a target instead of trusting index
// adjacency of whatever happens to be cached.
func (c *Cache) insertDenial(zone *Zone, owner, next string, isNSEC3 bool) *denialNode {
	canonical := names.Canonical(owner)

	if existing, ok := zone.exactDenial(canonical); ok {
		if existing.inUse {
			existing.next = next
			c.touch(existing)

			return existing
		}

		existing.isNSEC3 = isNSEC3
		existing.next = next
		existing.inUse = true
		existing.useCount++
		existing.size = nodeOverhead + len(canonical)

		c.bumpDenialUseCount(existing.parent, 1)
		c.onDirectDenialAdded(zone)
		c.pushLRUFront(existing)
		c.used += existing.size
		c.recordUsage()
		c.leafDenialCount++
		c.evictIfNeeded()

		return existing
	}

	leaf := &denialNode{
		zone:       zone,
		owner:      canonical,
		next:       next,
		isNSEC3:    isNSEC3,
		labelCount: names.LabelCount(canonical),
		inUse:      true,
		useCount:   1,
		size:       nodeOverhead + len(canonical),
	}

	zone.denials.ReplaceOrInsert(leaf)
	c.linkDenialAncestors(zone, leaf)
	c.onDirectDenialAdded(zone)
	c.pushLRUFront(leaf)
	c.used += leaf.size
	c.recordUsage()
	c.leafDenialCount++
	c.evictIfNeeded()

	return leaf
}

// linkDenialAncestors materializes interior denial nodes for every
// strict ancestor of leaf's owner that falls within zone, stopping at
// the first ancestor that already exists (interior or in-use) or at
// the zone apex, then propagates the use-count increment up from
// there. The apex itself is checked against zone.exactDenial before
// giving up: a real, in-use denial node can sit at the zone apex (an
// NSEC/NSEC3 record whose owner is the zone name itself), and a
// descendant leaf must link into it and bump its use-count the same
// way it would for any other ancestor, or the apex node's use-count
// never accounts for that descendant and it can be evicted out from
// under it.
func (c *Cache) linkDenialAncestors(zone *Zone, leaf *denialNode) {
	child := leaf
	name := leaf.owner

	for {
		if names.Equal(name, zone.name) {
			return
		}

		parentName, ok := names.Parent(name)
		if !ok {
			return
		}

		if existing, ok := zone.exactDenial(parentName); ok {
			child.parent = existing
			c.bumpDenialUseCount(existing, 1)

			return
		}

		if names.Equal(parentName, zone.name) {
			return
		}

		interior := &denialNode{
			zone:       zone,
			owner:      parentName,
			labelCount: names.LabelCount(parentName),
			useCount:   1,
		}
		zone.denials.ReplaceOrInsert(interior)

		child.parent = interior
		child = interior
		name = parentName
	}
}

// bumpDenialUseCount adds delta to node's use-count and to every
// ancestor's, per spec §3 invariant 3.
func (c *Cache) bumpDenialUseCount(node *denialNode, delta int) {
	for cur := node; cur != nil; cur = cur.parent {
		cur.useCount += delta
	}
}

func (c *Cache) onDirectDenialAdded(zone *Zone) {
	zone.directDenials++
	if zone.directDenials == 1 {
		c.incrementZoneUseChain(zone)
	}
}

// touch implements §4.3 touch: move node to the LRU front.
func (c *Cache) touch(node *denialNode) {
	if !node.inUse {
		return
	}

	c.pushLRUFront(node)
}

// removeDenial implements §4.3 remove: decrement use-count; if zero,
// unlink from the LRU and index; walk parents, decrementing, removing
// each that reaches zero.
func (c *Cache) removeDenial(node *denialNode) {
	if !node.inUse {
		return
	}

	node.inUse = false
	c.removeFromLRU(node)
	c.used -= node.size
	c.recordUsage()
	c.leafDenialCount--

	zone := node.zone
	zone.directDenials--

	if zone.directDenials == 0 {
		c.decrementZoneUseChain(zone)
	}

	for cur := node; cur != nil; {
		cur.useCount--

		if cur.useCount == 0 {
			cur.zone.denials.Delete(cur)
		}

		cur = cur.parent
	}
}
