package main

import (
	"fmt"
	"time"

	"github.com/negcache/negcache/config"
	"github.com/negcache/negcache/negcache"
	"github.com/negcache/negcache/rrsetcache"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

// NewDemoCommand builds the "demo" subcommand.
func NewDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "ingest a fixture NXDOMAIN reply and synthesize the same answer from cache",
		RunE:  runDemo,
	}
}

const (
	demoZone  = "example.com."
	demoQName = "nx.example.com."
	demoTTL   = 300 * time.Second
)

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := &config.NegativeCache{Size: 1 << 20}
	if err := cfg.ApplyDefaults(); err != nil {
		return fmt.Errorf("applying config defaults: %w", err)
	}

	cache := negcache.New(int(cfg.Size), cfg.MaxIterations(), cfg.HardenAlgoDowngrade)
	rrsets := rrsetcache.NewReference(1024)

	reply := buildFixtureReply()
	storeFixtureRRsets(rrsets, reply)

	cache.AddReply(reply)

	msg, err := cache.GetMessage(dns.ClassINET, demoQName, dns.TypeA, rrsets, time.Now())
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), msg.String())

	stats := cache.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "\n; zones=%d denials=%d bytes=%d/%d\n",
		stats.Zones, stats.Denials, stats.BytesInUse, stats.BytesCap)

	return nil
}

// buildFixtureReply constructs a minimal, canned authoritative NXDOMAIN
// reply for demoQName under demoZone: an apex NSEC covering the
// wildcard and a second NSEC covering demoQName itself, plus the
// zone's SOA.
func buildFixtureReply() *dns.Msg {
	soa := &dns.SOA{
		Hdr:     dns.RR_Header{Name: demoZone, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 3600},
		Ns:      "ns1." + demoZone,
		Mbox:    "hostmaster." + demoZone,
		Serial:  1,
		Refresh: 3600,
		Retry:   900,
		Expire:  604800,
		Minttl:  3600,
	}

	apexNSEC := &dns.NSEC{
		Hdr:        dns.RR_Header{Name: demoZone, Rrtype: dns.TypeNSEC, Class: dns.ClassINET, Ttl: uint32(demoTTL.Seconds())},
		NextDomain: "mail." + demoZone,
		TypeBitMap: []uint16{dns.TypeSOA, dns.TypeNS, dns.TypeNSEC, dns.TypeRRSIG},
	}

	mailNSEC := &dns.NSEC{
		Hdr:        dns.RR_Header{Name: "mail." + demoZone, Rrtype: dns.TypeNSEC, Class: dns.ClassINET, Ttl: uint32(demoTTL.Seconds())},
		NextDomain: "www." + demoZone,
		TypeBitMap: []uint16{dns.TypeA, dns.TypeNSEC, dns.TypeRRSIG},
	}

	msg := new(dns.Msg)
	msg.SetQuestion(demoQName, dns.TypeA)
	msg.Rcode = dns.RcodeNameError
	msg.Response = true
	msg.Ns = []dns.RR{soa, apexNSEC, mailNSEC}

	return msg
}

// storeFixtureRRsets primes the RRset-cache collaborator with the same
// records the negative cache will later ask it for by owner/type/class,
// mirroring how a real resolver's RRset cache would already hold these
// records after receiving the same reply.
func storeFixtureRRsets(rrsets *rrsetcache.Reference, reply *dns.Msg) {
	type key struct {
		owner string
		rtype uint16
	}

	byOwnerType := map[key][]dns.RR{}

	for _, rr := range reply.Ns {
		k := key{rr.Header().Name, rr.Header().Rrtype}
		byOwnerType[k] = append(byOwnerType[k], rr)
	}

	for k, set := range byOwnerType {
		rrsets.Store(k.owner, k.rtype, set[0].Header().Class, set, demoTTL)
	}
}
