package negcache

import (
	"fmt"

	"github.com/miekg/dns"
)

// nsec3Params holds a zone's NSEC3PARAM triple. A nil *nsec3Params on a
// Zone means that zone uses plain NSEC (spec §3 "sentinel plain-NSEC").
type nsec3Params struct {
	hashAlg    uint8
	iterations uint16
	salt       string
}

func (p *nsec3Params) equal(other *nsec3Params) bool {
	if p == nil || other == nil {
		return p == other
	}

	return p.hashAlg == other.hashAlg && p.iterations == other.iterations && p.salt == other.salt
}

// hash computes the NSEC3 hash of name under p, memoizing per zone since a
// single synthesis call probes closest-encloser, next-closer and wildcard
// names against the same parameters (spec §9 "NSEC3 hashing").
//
// Every call happens with the cache's big lock held, so a plain map
// suffices here; blocky's validator uses a sync.Map for the same
// memoization because it is reachable without a coarser lock already
// guaranteeing exclusivity.
func (z *Zone) hash(name string) (string, error) {
	if z.params == nil {
		return "", errParamsUnsupported
	}

	if z.params.hashAlg != dns.SHA1 {
		return "", errParamsUnsupported
	}

	key := fmt.Sprintf("%s:%d:%s:%d", name, z.params.hashAlg, z.params.salt, z.params.iterations)

	if h, ok := z.hashCache[key]; ok {
		return h, nil
	}

	h := dns.HashName(name, z.params.hashAlg, z.params.iterations, z.params.salt)
	if z.hashCache == nil {
		z.hashCache = make(map[string]string, 4)
	}

	z.hashCache[key] = h

	return h, nil
}
