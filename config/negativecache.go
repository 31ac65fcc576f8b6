package config

import (
	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
)

// Nsec3IterMap maps an NSEC3 keysize (bits) to the maximum iteration
// count this cache will accept for a zone using that keysize (RFC
// 5155 §10.3 / unbound-style val_nsec3_keysize_iterations policy).
type Nsec3IterMap map[uint16]uint16

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (m *Nsec3IterMap) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input map[uint16]uint16
	if err := unmarshal(&input); err != nil {
		return err
	}

	*m = input

	return nil
}

// defaultMaxIterations is used when NSEC3KeysizeIterations is empty.
const defaultMaxIterations uint16 = 150

// NegativeCache is the configuration recognized by the aggressive
// negative cache (spec §6 "Configuration recognized"). The subsystem
// itself has no CLI, environment variable, or on-disk format: this
// struct is loaded by the surrounding application and reduced to the
// plain arguments `negcache.New` takes.
type NegativeCache struct {
	Size                   uint64       `yaml:"size"                default:"1048576"`
	HardenAlgoDowngrade    bool         `yaml:"hardenAlgoDowngrade" default:"true"`
	NSEC3KeysizeIterations Nsec3IterMap `yaml:"nsec3KeysizeIterations"`
}

// ApplyDefaults populates unset fields from their `default` struct
// tags. The surrounding application calls this once after unmarshalling
// (this package recognizes no on-disk format of its own, per spec §6).
func (c *NegativeCache) ApplyDefaults() error {
	return defaults.Set(c)
}

// IsEnabled implements `config.ValueLogger`.
func (c *NegativeCache) IsEnabled() bool {
	return c.Size > 0
}

// LogValues implements `config.ValueLogger`.
func (c *NegativeCache) LogValues(logger *logrus.Entry) {
	logger.Infof("size = %d bytes", c.Size)
	logger.Infof("hardenAlgoDowngrade = %t", c.HardenAlgoDowngrade)

	if len(c.NSEC3KeysizeIterations) > 0 {
		logger.Infof("nsec3KeysizeIterations = %d entries, max = %d", len(c.NSEC3KeysizeIterations), c.MaxIterations())
	} else {
		logger.Infof("nsec3KeysizeIterations = (default %d)", defaultMaxIterations)
	}
}

// MaxIterations reduces NSEC3KeysizeIterations to the single
// nsec3_max_iter ceiling `negcache.New` accepts: the minimum
// configured cap across all keysizes, matching
// val_nsec3_keysize_iterations semantics (the tightest configured
// policy wins). Falls back to defaultMaxIterations when unconfigured.
func (c *NegativeCache) MaxIterations() uint16 {
	if len(c.NSEC3KeysizeIterations) == 0 {
		return defaultMaxIterations
	}

	min := ^uint16(0)

	for _, v := range c.NSEC3KeysizeIterations {
		if v < min {
			min = v
		}
	}

	return min
}
