package tlru

import "time"

// configuration for a TLRU mask cache
type Config struct {
	// Maximum number of masks in the cache, set to -1 to disable the item limit
	MaxItems int

	// TTL for masks added into the cache, a hit refreshes the TTL so frequently
	// read masks outlive cold ones
	DefaultTTL time.Duration

	// How often the background sweep evicts expired masks
	SweepInterval time.Duration
}

const ConfigDefaultMaxItems = 65_536
const ConfigDefaultTTL = time.Minute
const ConfigDefaultSweepInterval = time.Second

func (c *Config) Validate() error {
	if c.MaxItems == 0 {
		c.MaxItems = ConfigDefaultMaxItems
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = ConfigDefaultTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = ConfigDefaultSweepInterval
	}
	return nil
}
