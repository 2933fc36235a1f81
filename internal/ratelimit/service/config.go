package service

import (
	"time"

	"eventgate/internal/ratelimit/models"
)

// Profile is one named window/threshold pair.
type Profile struct {
	MaxRequests int
	Window      time.Duration
}

// Config maps endpoint classes to their profiles.
type Config struct {
	Profiles map[models.EndpointClass]Profile
}

// DefaultConfig returns the stock profiles. Tracking ingestion runs hot by
// design; auth endpoints are kept strict to blunt credential stuffing.
func DefaultConfig() *Config {
	return &Config{
		Profiles: map[models.EndpointClass]Profile{
			models.ClassAPI:      {MaxRequests: 100, Window: time.Minute},
			models.ClassTracking: {MaxRequests: 300, Window: time.Minute},
			models.ClassAuth:     {MaxRequests: 10, Window: time.Minute},
			models.ClassWebhook:  {MaxRequests: 60, Window: time.Minute},
		},
	}
}

// GetLimit returns the profile for a class. ok is false when no profile is
// configured, which callers treat as deny (an unconfigured class is a bug,
// not an open door).
func (c *Config) GetLimit(class models.EndpointClass) (int, time.Duration, bool) {
	p, ok := c.Profiles[class]
	if !ok {
		return 0, 0, false
	}
	return p.MaxRequests, p.Window, true
}
