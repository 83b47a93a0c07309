// Package geoip resolves IP addresses to locations through pluggable public
// providers, with response caching and in-flight request collapsing.
package geoip

import (
	"errors"
	"fmt"
)

// Location is the provider-independent lookup result.
type Location struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"countryCode,omitempty"`
	Country     string  `json:"country,omitempty"`
	Region      string  `json:"region,omitempty"`
	RegionCode  string  `json:"regionCode,omitempty"`
	City        string  `json:"city,omitempty"`
	PostalCode  string  `json:"postalCode,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	ISP         string  `json:"isp,omitempty"`
	Provider    string  `json:"provider"`
}

var (
	// ErrInvalidIP is returned for input that is not an IP address.
	ErrInvalidIP = errors.New("geoip: invalid ip address")
	// ErrPrivateAddress is returned for non-routable addresses when no fallback is configured.
	ErrPrivateAddress = errors.New("geoip: private or reserved address")
	// ErrUnknownProvider is returned by NewProvider for unrecognised names.
	ErrUnknownProvider = errors.New("geoip: unknown provider")
)

// ProviderError reports a provider-side failure: an HTTP error status or an
// error payload in a successful response.
type ProviderError struct {
	Provider string
	Status   int
	Reason   string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("geoip: %s: %s (status %d)", e.Provider, e.Reason, e.Status)
	}
	return fmt.Sprintf("geoip: %s: %s", e.Provider, e.Reason)
}
