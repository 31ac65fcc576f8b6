package negcache_test

import (
	"time"

	"github.com/negcache/negcache/negcache"
	"github.com/negcache/negcache/rrsetcache"

	"github.com/miekg/dns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// storeAuthority mirrors every record of an authoritative reply's
// authority section into an rrsetcache.Reference, grouped by
// owner/type, the way a resolver's RRset cache would already hold them
// after receiving the same reply.
func storeAuthority(rrsets *rrsetcache.Reference, rrs []dns.RR, ttl time.Duration) {
	type key struct {
		owner string
		rtype uint16
	}

	grouped := map[key][]dns.RR{}

	for _, rr := range rrs {
		k := key{rr.Header().Name, rr.Header().Rrtype}
		grouped[k] = append(grouped[k], rr)
	}

	for k, set := range grouped {
		rrsets.Store(k.owner, k.rtype, set[0].Header().Class, set, ttl)
	}
}

var _ = Describe("Synthesis", func() {
	var (
		c      *negcache.Cache
		rrsets *rrsetcache.Reference
		ttl    = 300 * time.Second
	)

	BeforeEach(func() {
		c = negcache.New(1<<20, 150, true)
		rrsets = rrsetcache.NewReference(1024)
	})

	Context("plain NSEC zone", func() {
		BeforeEach(func() {
			reply := new(dns.Msg)
			reply.Ns = []dns.RR{
				soaRR("example.com."),
				nsecRR("example.com.", "mail.example.com.", dns.TypeSOA, dns.TypeNS, dns.TypeNSEC),
				nsecRR("mail.example.com.", "www.example.com.", dns.TypeA, dns.TypeNSEC),
			}
			c.AddReply(reply)
			storeAuthority(rrsets, reply.Ns, ttl)
		})

		It("synthesizes an NXDOMAIN for a covered name", func() {
			msg, err := c.GetMessage(dns.ClassINET, "nx.example.com.", dns.TypeA, rrsets, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Rcode).To(Equal(dns.RcodeNameError))
			Expect(msg.Ns).NotTo(BeEmpty())
		})

		It("synthesizes NODATA for a name that exists but lacks the queried type", func() {
			msg, err := c.GetMessage(dns.ClassINET, "example.com.", dns.TypeMX, rrsets, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Rcode).To(Equal(dns.RcodeSuccess))
		})

		It("refuses to synthesize when the queried type is claimed present in the bitmap", func() {
			_, err := c.GetMessage(dns.ClassINET, "example.com.", dns.TypeSOA, rrsets, time.Now())
			Expect(err).To(MatchError(negcache.ErrNoProof))
		})

		It("returns ErrNoProof for a name with no cached coverage", func() {
			_, err := c.GetMessage(dns.ClassINET, "unrelated.net.", dns.TypeA, rrsets, time.Now())
			Expect(err).To(MatchError(negcache.ErrNoProof))
		})

		It("retries once and gives up cleanly when the backing RRset has expired out from under it", func() {
			// Drop the RRset cache entry the covering NSEC depends on
			// without telling the negative cache: this is the "expired
			// proof" scenario (spec §7 item 4).
			rrsets = rrsetcache.NewReference(1024)

			_, err := c.GetMessage(dns.ClassINET, "nx.example.com.", dns.TypeA, rrsets, time.Now())
			Expect(err).To(MatchError(negcache.ErrNoProof))

			// The stale denial nodes should have been evicted as a side effect.
			Expect(c.Stats().Denials).To(Equal(0))
		})
	})

	Context("NSEC3 zone", func() {
		var zoneParams *dns.NSEC3PARAM

		BeforeEach(func() {
			zoneParams = &dns.NSEC3PARAM{
				Hdr:        dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeNSEC3PARAM, Class: dns.ClassINET},
				Hash:       dns.SHA1,
				Iterations: 1,
				Salt:       "ab",
			}

			apex := dns.HashName("example.com.", dns.SHA1, 1, "ab")

			apexNode := &dns.NSEC3{
				Hdr:        dns.RR_Header{Name: apex + ".example.com.", Rrtype: dns.TypeNSEC3, Class: dns.ClassINET, Ttl: uint32(ttl.Seconds())},
				Hash:       dns.SHA1,
				Iterations: 1,
				Salt:       "ab",
				NextDomain: apex,
				TypeBitMap: []uint16{dns.TypeSOA, dns.TypeNS},
			}

			reply := new(dns.Msg)
			reply.Ns = []dns.RR{
				soaRR("example.com."),
				zoneParams,
				apexNode,
			}
			c.AddReply(reply)
			storeAuthority(rrsets, reply.Ns, ttl)
		})

		It("ingests NSEC3PARAM and produces a zone using NSEC3 hashing", func() {
			Expect(c.Stats().Zones).To(BeNumerically(">=", 1))
		})
	})
})
