package possync

import "time"

// Config controls the reconciliation worker loop.
type Config struct {
	Enabled      bool
	PollInterval time.Duration
	PageSize     int
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		PollInterval: 5 * time.Minute,
		PageSize:     50,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.PageSize <= 0 {
		c.PageSize = defaults.PageSize
	}
	return c
}
