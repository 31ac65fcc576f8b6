package negcache

import (
	"fmt"
	"strings"

	"github.com/negcache/negcache/names"

	"github.com/hashicorp/go-multierror"
	"github.com/miekg/dns"
)

// AddReply implements spec §4.5 add_reply: the applicable zone is
// derived from the SOA owner in the reply's authority section.
func (c *Cache) AddReply(reply *dns.Msg) {
	c.ingest(reply, "")
}

// AddReferral implements spec §4.5 add_referral: the applicable zone is
// the supplied bailiwick, bypassing SOA lookup.
func (c *Cache) AddReferral(reply *dns.Msg, bailiwick string) {
	c.ingest(reply, bailiwick)
}

// ingest is best-effort: malformed input, a policy refusal, or a
// resource problem aborts the current operation without partial side
// effects, but never propagates to the caller (spec §4.5, §7).
func (c *Cache) ingest(reply *dns.Msg, bailiwick string) {
	zoneName := bailiwick
	if zoneName == "" {
		found, ok := findSOAOwner(reply)
		if !ok {
			c.logger.Debugf("%v", errNoZone)
			return
		}

		zoneName = found
	}

	if err := names.Validate(zoneName); err != nil {
		c.logger.Debugf("ingest aborted: %v", err)
		return
	}

	class := inferClass(reply)

	params, err := extractNSEC3Params(reply, c.nsec3MaxIter)
	if err != nil {
		c.logger.Debugf("ingest aborted for zone %s: %v", zoneName, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	zone := c.ensureZone(class, zoneName, params)

	var errs *multierror.Error

	inserted := 0

	for _, rr := range reply.Ns {
		owner, next, isNSEC3, ok := denialOwnerOf(rr)
		if !ok {
			continue
		}

		if !names.Equal(owner, zone.name) && !names.IsStrictSubdomain(owner, zone.name) {
			continue
		}

		if err := names.Validate(owner); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s: %v", errMalformedName, owner, err))
			continue
		}

		if isNSEC3 {
			next = names.Canonical(next + "." + zone.name)
		}

		c.insertDenial(zone, owner, next, isNSEC3)
		inserted++
	}

	c.ingested++
	c.metrics.AddIngested(inserted)

	if errs != nil {
		c.logger.Debugf("ingest for zone %s completed with %d skipped records: %v", zoneName, len(errs.Errors), errs)
	}
}

// denialOwnerOf returns the canonical owner name of rr and its next
// field, if rr is an NSEC or NSEC3 record. For NSEC, next is the
// record's NextDomain, already a full canonical name. For NSEC3, next
// is the bare next-hash label (dns.NSEC3.NextDomain carries no zone
// suffix); the caller appends the zone name once it knows it.
func denialOwnerOf(rr dns.RR) (owner, next string, isNSEC3, ok bool) {
	switch r := rr.(type) {
	case *dns.NSEC:
		return names.Canonical(r.Header().Name), names.Canonical(r.NextDomain), false, true
	case *dns.NSEC3:
		return names.Canonical(r.Header().Name), strings.ToLower(r.NextDomain), true, true
	default:
		return "", "", false, false
	}
}

// findSOAOwner returns the canonical owner name of the first SOA record
// found in the reply's authority section.
func findSOAOwner(reply *dns.Msg) (string, bool) {
	for _, rr := range reply.Ns {
		if soa, ok := rr.(*dns.SOA); ok {
			return names.Canonical(soa.Header().Name), true
		}
	}

	return "", false
}

// inferClass returns the query class of reply, defaulting to IN.
func inferClass(reply *dns.Msg) uint16 {
	if len(reply.Question) > 0 {
		return reply.Question[0].Qclass
	}

	for _, rr := range reply.Ns {
		return rr.Header().Class
	}

	return dns.ClassINET
}

// extractNSEC3Params implements §4.5 step 2: if the reply carries an
// NSEC3PARAM, extract it, refusing (policy refusal, §7) if its
// iteration count exceeds maxIter. Absence of an NSEC3PARAM means the
// zone uses plain NSEC (nil params).
func extractNSEC3Params(reply *dns.Msg, maxIter uint16) (*nsec3Params, error) {
	for _, rr := range reply.Ns {
		p, ok := rr.(*dns.NSEC3PARAM)
		if !ok {
			continue
		}

		if p.Iterations > maxIter {
			return nil, errIterationsExceeded
		}

		if p.Hash != dns.SHA1 {
			return nil, errParamsUnsupported
		}

		return &nsec3Params{hashAlg: p.Hash, iterations: p.Iterations, salt: p.Salt}, nil
	}

	return nil, nil
}
