package config

import (
	"github.com/redis/rueidis"
)

// NewRedisClient returns nil when no address is configured.
func NewRedisClient(addr string) (rueidis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
}
