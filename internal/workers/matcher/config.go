// internal/workers/matcher/config.go
package matcher

import "cv-pipeline/internal/common/config"

type Config struct {
	TopN            int
	DefaultLocation string
	// ExternalSkillScore asks the reasoning service for a skill match per
	// listing instead of the overlap ratio.
	ExternalSkillScore bool
}

func LoadConfig() *Config {
	return &Config{
		TopN:            5,
		DefaultLocation: "Indonesia",
	}
}

// LoadConfigFrom applies the apis.listings section over the defaults.
func LoadConfigFrom(cfg *config.Config) *Config {
	c := LoadConfig()
	listings := cfg.APIs.Listings
	if listings.Location != "" {
		c.DefaultLocation = listings.Location
	}
	if listings.TopN > 0 {
		c.TopN = listings.TopN
	}
	c.ExternalSkillScore = listings.ExternalSkillScore
	return c
}
