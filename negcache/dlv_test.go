package negcache_test

import (
	"time"

	"github.com/negcache/negcache/negcache"
	"github.com/negcache/negcache/rrsetcache"

	"github.com/miekg/dns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DLVLookup", func() {
	var (
		c      *negcache.Cache
		rrsets *rrsetcache.Reference
		ttl    = 300 * time.Second
	)

	BeforeEach(func() {
		c = negcache.New(1<<20, 150, true)
		rrsets = rrsetcache.NewReference(1024)

		reply := new(dns.Msg)
		reply.Ns = []dns.RR{
			soaRR("example.com."),
			nsecRR("example.com.", "mail.example.com.", dns.TypeSOA, dns.TypeNS, dns.TypeNSEC),
			nsecRR("mail.example.com.", "www.example.com.", dns.TypeA, dns.TypeNSEC),
		}
		c.AddReply(reply)
		storeAuthority(rrsets, reply.Ns, ttl)
	})

	It("reports ProvenAbsent for a name covered by a cached NXDOMAIN proof", func() {
		result := c.DLVLookup(dns.ClassINET, "nx.example.com.", rrsets, time.Now())
		Expect(result).To(Equal(negcache.ProvenAbsent))
	})

	It("reports Unproven for a name that exists (exact match)", func() {
		result := c.DLVLookup(dns.ClassINET, "example.com.", rrsets, time.Now())
		Expect(result).To(Equal(negcache.Unproven))
	})

	It("reports Unproven for a name with no cached coverage at all", func() {
		result := c.DLVLookup(dns.ClassINET, "unrelated.net.", rrsets, time.Now())
		Expect(result).To(Equal(negcache.Unproven))
	})

	It("reports Unproven and evicts stale nodes when the backing RRset has expired", func() {
		empty := rrsetcache.NewReference(1024)

		result := c.DLVLookup(dns.ClassINET, "nx.example.com.", empty, time.Now())
		Expect(result).To(Equal(negcache.Unproven))
		Expect(c.Stats().Denials).To(Equal(0))
	})
})
