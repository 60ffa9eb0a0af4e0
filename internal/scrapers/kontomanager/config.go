package kontomanager

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	default_timeout             = time.Second * 30
	default_requests_per_second = 2
)

var brandUrls = map[string]string{
	"yesss": "https://www.yesss.at/kontomanager.at/app/",
	"georg": "https://kundencenter.georg.at/app/",
	"xoxo":  "https://xoxo.kontomanager.at/app/",
}

// Brands returns the names of every supported brand in alphabetical order.
func Brands() []string {
	brands := make([]string, 0, len(brandUrls))
	for b := range brandUrls {
		brands = append(brands, b)
	}
	slices.Sort(brands)
	return brands
}

type Config struct {
	// Brand selects the portal, one of Brands().
	Brand    string `json:"brand"`
	Username string `json:"username"`
	Password string `json:"password"`

	// BaseUrl overrides the url derived from Brand, it must end with the
	// directory the portal pages live in (ex. "https://host/app/").
	BaseUrl string `json:"base_url"`
	// TimeoutSeconds bounds every request, 0 means 30 seconds.
	TimeoutSeconds int `json:"timeout_seconds"`
	// RequestsPerSecond paces requests to the portal, 0 means 2.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// CloudflareBypass wraps the transport with browser-like TLS settings.
	CloudflareBypass bool `json:"cloudflare_bypass"`
}

// ResolveBaseUrl returns the portal url for the configured brand (or the explicit override).
func (c Config) ResolveBaseUrl() (*url.URL, error) {
	raw := c.BaseUrl
	if raw == "" {
		brandUrl, ok := brandUrls[strings.ToLower(strings.TrimSpace(c.Brand))]
		if !ok {
			return nil, newError(KindConfig, fmt.Sprintf(
				"unknown brand: %q, supported brands are: %s",
				c.Brand, strings.Join(Brands(), ", "),
			), nil)
		}
		raw = brandUrl
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, newError(KindConfig, "invalid base url", err)
	}
	if !parsed.IsAbs() {
		return nil, newError(KindConfig, fmt.Sprintf("base url must be absolute: %q", raw), nil)
	}
	return parsed, nil
}

// Validate checks that the config can be used to construct a client.
func (c Config) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return newError(KindConfig, fmt.Sprintf("missing required settings: %s", strings.Join(missing, ", ")), nil)
	}
	if c.TimeoutSeconds < 0 {
		return newError(KindConfig, "timeout_seconds must not be negative", nil)
	}
	if c.RequestsPerSecond < 0 {
		return newError(KindConfig, "requests_per_second must not be negative", nil)
	}
	_, err := c.ResolveBaseUrl()
	return err
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds == 0 {
		return default_timeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) requestsPerSecond() float64 {
	if c.RequestsPerSecond == 0 {
		return default_requests_per_second
	}
	return c.RequestsPerSecond
}
