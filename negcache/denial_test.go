package negcache

import (
	"github.com/miekg/dns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Denial index", func() {
	var (
		c    *Cache
		zone *Zone
	)

	BeforeEach(func() {
		c = New(1<<20, 150, true)
		zone = c.ensureZone(dns.ClassINET, "example.com.", nil)
	})

	Describe("denialLess", func() {
		It("orders by canonical owner name", func() {
			a := &denialNode{owner: "a.example.com."}
			b := &denialNode{owner: "b.example.com."}
			Expect(denialLess(a, b)).To(BeTrue())
		})
	})

	Describe("insertDenial", func() {
		It("marks the new node in-use and moves it to the LRU front", func() {
			node := c.insertDenial(zone, "www.example.com.", "", false)
			Expect(node.inUse).To(BeTrue())
			Expect(c.lruHead).To(BeIdenticalTo(node))
		})

		It("materializes interior ancestors up to the zone apex", func() {
			c.insertDenial(zone, "a.b.www.example.com.", "", false)

			interior, ok := zone.exactDenial("b.www.example.com.")
			Expect(ok).To(BeTrue())
			Expect(interior.inUse).To(BeFalse())
		})

		It("converts an existing interior node into a leaf without duplicating it", func() {
			c.insertDenial(zone, "a.b.www.example.com.", "", false)
			before := zone.denials.Len()

			node := c.insertDenial(zone, "b.www.example.com.", "", false)
			Expect(node.inUse).To(BeTrue())
			Expect(zone.denials.Len()).To(Equal(before))
		})

		It("re-touches an already in-use node instead of duplicating it", func() {
			first := c.insertDenial(zone, "www.example.com.", "", false)
			before := zone.denials.Len()

			second := c.insertDenial(zone, "www.example.com.", "", false)
			Expect(second).To(BeIdenticalTo(first))
			Expect(zone.denials.Len()).To(Equal(before))
		})

		It("increments zone.directDenials exactly once per leaf", func() {
			c.insertDenial(zone, "a.example.com.", "", false)
			c.insertDenial(zone, "b.example.com.", "", false)
			Expect(zone.directDenials).To(Equal(2))
		})

		It("links a descendant into a real denial node already sitting at the zone apex", func() {
			apex := c.insertDenial(zone, "example.com.", "", false)
			child := c.insertDenial(zone, "mail.example.com.", "", false)

			Expect(child.parent).To(BeIdenticalTo(apex))
			Expect(apex.useCount).To(Equal(2))
		})

		It("does not evict the apex while a linked descendant is still in-use", func() {
			apex := c.insertDenial(zone, "example.com.", "", false)
			c.insertDenial(zone, "mail.example.com.", "", false)

			c.removeDenial(apex)

			_, ok := zone.exactDenial("example.com.")
			Expect(ok).To(BeTrue(), "apex node must survive while mail.example.com. still depends on it")
		})
	})

	Describe("removeDenial", func() {
		It("decrements the use-count chain and unlinks interior nodes at zero", func() {
			c.insertDenial(zone, "a.b.www.example.com.", "", false)
			leaf, _ := zone.exactDenial("a.b.www.example.com.")

			c.removeDenial(leaf)

			_, ok := zone.exactDenial("b.www.example.com.")
			Expect(ok).To(BeFalse())
			Expect(zone.directDenials).To(Equal(0))
		})

		It("is a no-op on an already-removed node", func() {
			leaf := c.insertDenial(zone, "www.example.com.", "", false)
			c.removeDenial(leaf)

			usedBefore := c.used
			c.removeDenial(leaf)
			Expect(c.used).To(Equal(usedBefore))
		})
	})

	Describe("touch", func() {
		It("moves an existing node to the LRU front", func() {
			a := c.insertDenial(zone, "a.example.com.", "", false)
			c.insertDenial(zone, "b.example.com.", "", false)

			c.touch(a)
			Expect(c.lruHead).To(BeIdenticalTo(a))
		})
	})
})
