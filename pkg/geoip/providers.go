package geoip

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Provider builds lookup URLs and decodes responses for one geo-IP service.
type Provider interface {
	Name() string
	Endpoint(ip string) string
	Decode(body []byte) (Location, error)
}

// Provider names accepted by NewProvider.
const (
	ProviderIPAPI   = "ip-api"
	ProviderIPAPICo = "ipapi"
	ProviderIPInfo  = "ipinfo"
)

// NewProvider returns the named provider configured with an optional API key.
func NewProvider(name, apiKey string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderIPAPI, "ipapi.com", "ip-api.com":
		return &IPAPI{Key: apiKey}, nil
	case ProviderIPAPICo, "ipapi.co":
		return &IPAPICo{Key: apiKey}, nil
	case ProviderIPInfo, "ipinfo.io":
		return &IPInfo{Token: apiKey}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// ProviderNames lists the canonical provider names.
func ProviderNames() []string {
	names := []string{ProviderIPAPI, ProviderIPAPICo, ProviderIPInfo}
	sort.Strings(names)
	return names
}

func withQuery(base, key, value string) string {
	if value == "" {
		return base
	}
	return base + "?" + url.Values{key: {value}}.Encode()
}

// IPAPI talks to ip-api.com. A key switches to the commercial endpoint.
type IPAPI struct {
	BaseURL string
	Key     string
}

func (p *IPAPI) Name() string { return ProviderIPAPI }

func (p *IPAPI) Endpoint(ip string) string {
	base := p.BaseURL
	if base == "" {
		base = "http://ip-api.com"
		if p.Key != "" {
			base = "https://pro.ip-api.com"
		}
	}
	return withQuery(strings.TrimSuffix(base, "/")+"/json/"+url.PathEscape(ip), "key", p.Key)
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Query       string  `json:"query"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
}

func (p *IPAPI) Decode(body []byte) (Location, error) {
	var r ipAPIResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Location{}, &ProviderError{Provider: p.Name(), Reason: "malformed response: " + err.Error()}
	}
	if r.Status == "fail" {
		return Location{}, &ProviderError{Provider: p.Name(), Reason: r.Message}
	}
	return Location{
		IP:          r.Query,
		CountryCode: r.CountryCode,
		Country:     r.Country,
		Region:      r.RegionName,
		RegionCode:  r.Region,
		City:        r.City,
		PostalCode:  r.Zip,
		Latitude:    r.Lat,
		Longitude:   r.Lon,
		Timezone:    r.Timezone,
		ISP:         r.ISP,
	}, nil
}

// IPAPICo talks to ipapi.co.
type IPAPICo struct {
	BaseURL string
	Key     string
}

func (p *IPAPICo) Name() string { return ProviderIPAPICo }

func (p *IPAPICo) Endpoint(ip string) string {
	base := p.BaseURL
	if base == "" {
		base = "https://ipapi.co"
	}
	return withQuery(strings.TrimSuffix(base, "/")+"/"+url.PathEscape(ip)+"/json/", "key", p.Key)
}

type ipapiCoResponse struct {
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
	Message     string  `json:"message"`
	IP          string  `json:"ip"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	RegionCode  string  `json:"region_code"`
	CountryCode string  `json:"country_code"`
	CountryName string  `json:"country_name"`
	Postal      string  `json:"postal"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	Org         string  `json:"org"`
}

func (p *IPAPICo) Decode(body []byte) (Location, error) {
	var r ipapiCoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Location{}, &ProviderError{Provider: p.Name(), Reason: "malformed response: " + err.Error()}
	}
	if r.Error {
		reason := r.Reason
		if r.Message != "" {
			reason += ": " + r.Message
		}
		return Location{}, &ProviderError{Provider: p.Name(), Reason: reason}
	}
	return Location{
		IP:          r.IP,
		CountryCode: r.CountryCode,
		Country:     r.CountryName,
		Region:      r.Region,
		RegionCode:  r.RegionCode,
		City:        r.City,
		PostalCode:  r.Postal,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Timezone:    r.Timezone,
		ISP:         r.Org,
	}, nil
}

// IPInfo talks to ipinfo.io.
type IPInfo struct {
	BaseURL string
	Token   string
}

func (p *IPInfo) Name() string { return ProviderIPInfo }

func (p *IPInfo) Endpoint(ip string) string {
	base := p.BaseURL
	if base == "" {
		base = "https://ipinfo.io"
	}
	return withQuery(strings.TrimSuffix(base, "/")+"/"+url.PathEscape(ip)+"/json", "token", p.Token)
}

type ipinfoResponse struct {
	IP       string          `json:"ip"`
	Bogon    bool            `json:"bogon"`
	City     string          `json:"city"`
	Region   string          `json:"region"`
	Country  string          `json:"country"`
	Loc      string          `json:"loc"`
	Org      string          `json:"org"`
	Postal   string          `json:"postal"`
	Timezone string          `json:"timezone"`
	Error    json.RawMessage `json:"error"`
}

func (p *IPInfo) Decode(body []byte) (Location, error) {
	var r ipinfoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Location{}, &ProviderError{Provider: p.Name(), Reason: "malformed response: " + err.Error()}
	}
	if len(r.Error) > 0 && string(r.Error) != "null" {
		var detail struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		}
		reason := string(r.Error)
		if json.Unmarshal(r.Error, &detail) == nil && detail.Title != "" {
			reason = detail.Title
			if detail.Message != "" {
				reason += ": " + detail.Message
			}
		}
		return Location{}, &ProviderError{Provider: p.Name(), Reason: reason}
	}
	if r.Bogon {
		return Location{}, &ProviderError{Provider: p.Name(), Reason: "bogon address"}
	}
	loc := Location{
		IP:          r.IP,
		CountryCode: r.Country,
		Region:      r.Region,
		City:        r.City,
		PostalCode:  r.Postal,
		Timezone:    r.Timezone,
		ISP:         r.Org,
	}
	if lat, lon, ok := strings.Cut(r.Loc, ","); ok {
		loc.Latitude, _ = strconv.ParseFloat(strings.TrimSpace(lat), 64)
		loc.Longitude, _ = strconv.ParseFloat(strings.TrimSpace(lon), 64)
	}
	return loc, nil
}
