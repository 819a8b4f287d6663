package ratelimit

import (
	"strings"
)

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Paths ending in "/" match by prefix, and an empty Method matches any method.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Special case: health check endpoint is unlimited
	if path == "/health" && method == "GET" {
		return &EndpointConfig{Path: path, Method: method}
	}

	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.matchesMethod(method) {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) && config.matchesMethod(method) {
			return config
		}
	}

	return nil
}

func (c *EndpointConfig) matchesMethod(method string) bool {
	return c.Method == "" || c.Method == method
}

// key identifies the bucket shared by every request matching c. Prefix
// configurations share one bucket across the paths they match.
func (c *EndpointConfig) key(path, method string) string {
	if c.Path == "" {
		return path + ":" + method
	}
	return c.Path + ":" + c.Method
}
