package negcache

import "errors"

// Sentinel errors returned by the synthesis path (spec §7). Ingest never
// surfaces these: it is fire-and-forget and only ever logs.
var (
	// ErrNoProof means no sufficient NSEC/NSEC3 proof was found, or a
	// found proof depended on an expired RRset.
	ErrNoProof = errors.New("negcache: no covering denial proof")

	// ErrResourceExhausted means the assembled reply could not be packed
	// into a DNS message (for example, it exceeds the 64KiB limit).
	ErrResourceExhausted = errors.New("negcache: resource exhausted during message assembly")
)

// errMalformedName mirrors names.ErrMalformedName for ingest-path logging;
// kept distinct so ingest failures are traceable to this package's log
// lines without importing names' error identity into callers.
var errMalformedName = errors.New("negcache: malformed name in reply")

// errNoZone means the applicable zone for a reply could not be determined
// (no SOA in the authority section and no bailiwick supplied).
var errNoZone = errors.New("negcache: cannot determine zone for reply")

// errParamsUnsupported means the reply's NSEC3PARAM used an algorithm
// other than SHA-1, the only one RFC 5155 currently standardizes.
var errParamsUnsupported = errors.New("negcache: unsupported NSEC3 hash algorithm")

// errIterationsExceeded means the NSEC3PARAM iteration count exceeded the
// configured nsec3_max_iter policy.
var errIterationsExceeded = errors.New("negcache: nsec3 iteration count exceeds policy")
