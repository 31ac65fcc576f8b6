package negcache

import (
	"github.com/negcache/negcache/names"

	"github.com/google/btree"
	"github.com/miekg/dns"
)

// zoneDegree is the btree branching factor for both the zone index and
// every per-zone denial index. blocky has no equivalent tuning knob to
// borrow; 32 is btree's own documented rule-of-thumb default.
const zoneDegree = 32

// Zone is a node of the zone index (spec §3 "Zone"). Interior zones
// (materialized ancestors that hold no denials of their own) have
// params == nil and directDenials == 0, and never leave the index on
// their own — they are removed only when useCount decays to zero.
type Zone struct {
	class      uint16
	name       string // canonical, fully qualified
	labelCount int
	parent     *Zone

	params    *nsec3Params
	hashCache map[string]string

	denials *btree.BTreeG[*denialNode]

	directDenials int // count of leaf-in-use denials owned directly by this zone
	useCount      int // self (if directDenials > 0) plus in-use descendant zones
}

// denialRRType returns the DNS record type this zone's denials are
// expressed as.
func (z *Zone) denialRRType() uint16 {
	if z.params != nil {
		return dns.TypeNSEC3
	}

	return dns.TypeNSEC
}

func (z *Zone) exactDenial(owner string) (*denialNode, bool) {
	probe := &denialNode{owner: names.Canonical(owner)}
	return z.denials.Get(probe)
}

func zoneLess(a, b *Zone) bool {
	if !names.Equal(a.name, b.name) {
		return names.Less(a.name, b.name)
	}

	return a.class < b.class
}

func newZoneIndex() *btree.BTreeG[*Zone] {
	return btree.NewG[*Zone](zoneDegree, zoneLess)
}

func newDenialIndex() *btree.BTreeG[*denialNode] {
	return btree.NewG[*denialNode](zoneDegree, denialLess)
}

// findZone implements §4.2 find_zone: exact canonical match.
func (c *Cache) findZone(class uint16, name string) (*Zone, bool) {
	probe := &Zone{class: class, name: names.Canonical(name)}
	return c.zones.Get(probe)
}

// closestEncloser implements §4.2 closest_encloser: the deepest in-use
// ancestor-or-self zone of name, walking one label at a time the way
// blocky's own findClosestEncloser walks NSEC3 candidate names
// (resolver/dnssec/nsec3.go), generalized to the zone index.
func (c *Cache) closestEncloser(class uint16, name string) (*Zone, bool) {
	current := names.Canonical(name)

	for {
		if z, ok := c.findZone(class, current); ok && z.directDenials > 0 {
			return z, true
		}

		if current == "." {
			return nil, false
		}

		parent, ok := names.Parent(current)
		if !ok {
			return nil, false
		}

		current = parent
	}
}

// ensureZone implements §4.2 ensure_zone: insert if absent; if present
// with differing NSEC3 parameters, replace them. Whether the zone's
// existing denials are purged as part of that replacement depends on
// hardenAlgoDowngrade (spec §6 "harden_algo_downgrade (bool) - if set,
// NSEC3PARAM change in a zone purges that zone's denials"): when set,
// a stale chain computed under a weaker or different algorithm can't
// linger and be mistaken for a proof under the new one. When unset,
// old denials are left in place; since covering_denial and
// exactDenial lookups against the new params hash query names
// differently, the stale entries simply stop matching future lookups
// and are reclaimed the ordinary way, by LRU eviction.
func (c *Cache) ensureZone(class uint16, name string, params *nsec3Params) *Zone {
	canonical := names.Canonical(name)

	if z, ok := c.findZone(class, canonical); ok {
		if !z.params.equal(params) {
			if c.hardenAlgoDowngrade {
				c.purgeZoneDenials(z)
			}

			z.params = params
		}

		return z
	}

	z := &Zone{
		class:      class,
		name:       canonical,
		labelCount: names.LabelCount(canonical),
		params:     params,
		denials:    newDenialIndex(),
	}
	z.parent = c.materializeAncestorZone(class, canonical)

	c.zones.ReplaceOrInsert(z)
	c.zoneCount++

	return z
}

// materializeAncestorZone walks up from name's parent, creating interior
// zones as needed, until it finds an existing zone or reaches the root
// (spec §4.2 "interior ancestor zones are materialized down from an
// existing ancestor or the root").
func (c *Cache) materializeAncestorZone(class uint16, name string) *Zone {
	parentName, ok := names.Parent(name)
	if !ok {
		return nil
	}

	if existing, ok := c.findZone(class, parentName); ok {
		return existing
	}

	interior := &Zone{
		class:      class,
		name:       parentName,
		labelCount: names.LabelCount(parentName),
		denials:    newDenialIndex(),
	}
	interior.parent = c.materializeAncestorZone(class, parentName)

	c.zones.ReplaceOrInsert(interior)
	c.zoneCount++

	return interior
}

// incrementZoneUseChain propagates a zone becoming directly in-use up
// through its ancestor zones. A zone reached here may have previously
// decayed out of c.zones entirely (ensureZone can hand back a zone
// whose params were just replaced after its use-count fell to zero in
// the same critical section, per §4.2 "purge all its denials and
// replace"), so every zone on the chain whose use-count is zero is
// re-registered if it is missing from c.zones rather than assumed
// already present.
func (c *Cache) incrementZoneUseChain(zone *Zone) {
	for cur := zone; cur != nil; cur = cur.parent {
		if cur.useCount == 0 {
			if _, already := c.zones.Get(cur); !already {
				c.zones.ReplaceOrInsert(cur)
				c.zoneCount++
			}
		}

		cur.useCount++
	}
}

// decrementZoneUseChain propagates a zone no longer being directly
// in-use up through its ancestors, removing any zone whose useCount
// reaches zero.
func (c *Cache) decrementZoneUseChain(zone *Zone) {
	for cur := zone; cur != nil; {
		cur.useCount--
		parent := cur.parent

		if cur.useCount == 0 {
			c.zones.Delete(cur)
			c.zoneCount--
		}

		cur = parent
	}
}

// purgeZoneDenials removes every in-use denial from zone (spec §4.2
// "purge all its denials"), used when a zone's NSEC3PARAM changes.
func (c *Cache) purgeZoneDenials(zone *Zone) {
	var victims []*denialNode

	zone.denials.Ascend(func(n *denialNode) bool {
		if n.inUse {
			victims = append(victims, n)
		}

		return true
	})

	for _, v := range victims {
		c.removeDenial(v)
	}

	zone.hashCache = nil
}
