package negcache

import (
	"github.com/miekg/dns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LRU governor", func() {
	var (
		c    *Cache
		zone *Zone
	)

	Describe("pushLRUFront / removeFromLRU", func() {
		BeforeEach(func() {
			c = New(1 << 20, 150, true)
			zone = c.ensureZone(dns.ClassINET, "example.com.", nil)
		})

		It("keeps head and tail consistent across inserts", func() {
			a := c.insertDenial(zone, "a.example.com.", "", false)
			b := c.insertDenial(zone, "b.example.com.", "", false)

			Expect(c.lruHead).To(BeIdenticalTo(b))
			Expect(c.lruTail).To(BeIdenticalTo(a))
		})

		It("re-links the tail when the current tail is removed", func() {
			a := c.insertDenial(zone, "a.example.com.", "", false)
			b := c.insertDenial(zone, "b.example.com.", "", false)

			c.removeFromLRU(a)
			Expect(c.lruTail).To(BeIdenticalTo(b))
		})
	})

	Describe("evictIfNeeded", func() {
		It("never exceeds the byte cap and evicts from the tail", func() {
			c = New(nodeOverhead+len("a.example.com."), 150, true)
			zone = c.ensureZone(dns.ClassINET, "example.com.", nil)

			oldest := c.insertDenial(zone, "a.example.com.", "", false)
			c.insertDenial(zone, "bb.example.com.", "", false)

			Expect(c.used).To(BeNumerically("<=", c.capBytes))
			Expect(oldest.inUse).To(BeFalse())
			Expect(c.evictions).To(BeNumerically(">=", 1))
		})

		It("accepts nothing when the byte budget is zero", func() {
			c = New(0, 150, true)
			zone = c.ensureZone(dns.ClassINET, "example.com.", nil)

			node := c.insertDenial(zone, "a.example.com.", "", false)
			Expect(node.inUse).To(BeFalse())
			Expect(c.used).To(Equal(0))
		})
	})
})
