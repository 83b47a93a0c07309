package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"pluginkit/pkg/geo"
)

const (
	DefaultCacheSize = 512
	DefaultCacheTTL  = 24 * time.Hour
	DefaultTimeout   = 5 * time.Second

	maxBodyBytes = 1 << 20
)

// Options configure a Client.
type Options struct {
	Provider   Provider
	HTTPClient *http.Client
	// Timeout bounds each provider request. Zero means DefaultTimeout.
	Timeout time.Duration
	// CacheSize is the number of cached lookups. Zero means DefaultCacheSize;
	// a negative value disables caching.
	CacheSize int
	// CacheTTL is how long a cached lookup is served. Zero means DefaultCacheTTL.
	CacheTTL time.Duration
	// Fallback is returned for private addresses instead of ErrPrivateAddress.
	Fallback   *Location
	Logger     zerolog.Logger
	Registerer prometheus.Registerer
}

type cachedLocation struct {
	loc     Location
	expires time.Time
}

// Client resolves IP addresses through a Provider.
type Client struct {
	provider Provider
	http     *http.Client
	timeout  time.Duration
	ttl      time.Duration
	fallback *Location
	log      zerolog.Logger
	cache    *lru.Cache[string, cachedLocation]
	group    singleflight.Group
	lookups  *prometheus.CounterVec
	now      func() time.Time
}

// New constructs a Client. A nil provider defaults to ip-api.
func New(opts Options) (*Client, error) {
	c := &Client{
		provider: opts.Provider,
		http:     opts.HTTPClient,
		timeout:  opts.Timeout,
		ttl:      opts.CacheTTL,
		fallback: opts.Fallback,
		log:      opts.Logger.With().Str("component", "geoip").Logger(),
		now:      time.Now,
	}
	if c.provider == nil {
		c.provider = &IPAPI{}
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.ttl <= 0 {
		c.ttl = DefaultCacheTTL
	}
	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[string, cachedLocation](size)
		if err != nil {
			return nil, fmt.Errorf("geoip cache: %w", err)
		}
		c.cache = cache
	}
	c.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pluginkit_geoip_lookups_total",
		Help: "Geo-IP lookups by provider and result.",
	}, []string{"provider", "result"})
	if opts.Registerer != nil {
		if err := opts.Registerer.Register(c.lookups); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, fmt.Errorf("register geoip metrics: %w", err)
			}
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				c.lookups = existing
			}
		}
	}
	return c, nil
}

// Provider returns the configured provider.
func (c *Client) Provider() Provider { return c.provider }

// Lookup resolves ip to a Location.
func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		c.count("invalid")
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	addr = addr.Unmap()
	key := addr.String()

	if !IsPublic(addr) {
		c.count("private")
		if c.fallback != nil {
			loc := *c.fallback
			loc.IP = key
			return loc, nil
		}
		return Location{}, fmt.Errorf("%w: %s", ErrPrivateAddress, key)
	}

	if c.cache != nil {
		if hit, ok := c.cache.Get(key); ok && c.now().Before(hit.expires) {
			c.count("cache_hit")
			return hit.loc, nil
		}
	}

	// The shared fetch outlives any single caller; each caller still honours
	// its own ctx while waiting.
	flight := c.group.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), key)
	})
	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		c.count("error")
		return Location{}, fmt.Errorf("geoip: lookup %s: %w", key, ctx.Err())
	}
	if res.Err != nil {
		c.count("error")
		c.log.Warn().Err(res.Err).Str("ip", key).Str("provider", c.provider.Name()).Msg("geoip lookup failed")
		return Location{}, res.Err
	}
	c.count("ok")
	return res.Val.(Location), nil
}

func (c *Client) fetch(ctx context.Context, ip string) (Location, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name := c.provider.Name()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.provider.Endpoint(ip), nil)
	if err != nil {
		return Location{}, fmt.Errorf("geoip: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geoip: %s request: %w", name, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Location{}, fmt.Errorf("geoip: %s read: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := http.StatusText(resp.StatusCode)
		if _, decodeErr := c.provider.Decode(body); decodeErr != nil {
			var pe *ProviderError
			if errors.As(decodeErr, &pe) && !strings.HasPrefix(pe.Reason, "malformed") && pe.Reason != "" {
				reason = pe.Reason
			}
		}
		return Location{}, &ProviderError{Provider: name, Status: resp.StatusCode, Reason: reason}
	}

	loc, err := c.provider.Decode(body)
	if err != nil {
		return Location{}, err
	}
	if loc.IP == "" {
		loc.IP = ip
	}
	loc.CountryCode = strings.ToUpper(loc.CountryCode)
	if loc.Country == "" && loc.CountryCode != "" {
		loc.Country, _ = geo.CountryName(loc.CountryCode)
	}
	loc.Provider = name
	if c.cache != nil {
		c.cache.Add(ip, cachedLocation{loc: loc, expires: c.now().Add(c.ttl)})
	}
	c.log.Debug().Str("ip", ip).Str("provider", name).Str("country", loc.CountryCode).Msg("geoip lookup")
	return loc, nil
}

func (c *Client) count(result string) {
	c.lookups.WithLabelValues(c.provider.Name(), result).Inc()
}

var reserved = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// IsPublic reports whether addr is globally routable.
func IsPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() || addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() ||
		addr.IsInterfaceLocalMulticast() {
		return false
	}
	for _, p := range reserved {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
