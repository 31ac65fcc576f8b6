package negcache

// The LRU governor (spec §4.4) is a single process-wide doubly-linked
// recency list of in-use leaf denials. The links are stored inline in
// each denialNode (spec §9 "LRU threaded through the tree") rather than
// in a wrapping container/list.List, because list membership must be
// checked and mutated as part of the same operations that mutate the
// btree-backed indices, under the same critical section, and a node
// already needs identity to live in a btree.BTreeG.

// pushLRUFront inserts node at the head of the recency list, unlinking
// it first if it is already a member. It is used for both insert_denial
// and touch.
func (c *Cache) pushLRUFront(node *denialNode) {
	if c.lruHead == node {
		return
	}

	c.unlinkLRU(node)

	node.lruPrev = nil
	node.lruNext = c.lruHead

	if c.lruHead != nil {
		c.lruHead.lruPrev = node
	}

	c.lruHead = node

	if c.lruTail == nil {
		c.lruTail = node
	}
}

// removeFromLRU unlinks node from the recency list.
func (c *Cache) removeFromLRU(node *denialNode) {
	c.unlinkLRU(node)
	node.lruPrev = nil
	node.lruNext = nil
}

func (c *Cache) unlinkLRU(node *denialNode) {
	if node.lruPrev != nil {
		node.lruPrev.lruNext = node.lruNext
	} else if c.lruHead == node {
		c.lruHead = node.lruNext
	}

	if node.lruNext != nil {
		node.lruNext.lruPrev = node.lruPrev
	} else if c.lruTail == node {
		c.lruTail = node.lruPrev
	}
}

// evictIfNeeded implements the eviction half of §4.4: while used > cap,
// remove from the tail (least-recently used). This may cascade-remove
// interior nodes and empty zones.
func (c *Cache) evictIfNeeded() {
	for c.used > c.capBytes && c.lruTail != nil {
		victim := c.lruTail
		c.removeDenial(victim)
		c.evictions++
		c.metrics.AddEvictions(1)
	}
}
