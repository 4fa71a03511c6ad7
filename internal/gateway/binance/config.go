package binance

import (
	"strings"
	"time"
)

const (
	mainnetRESTURL = "https://fapi.binance.com"
	testnetRESTURL = "https://testnet.binancefuture.com"
)

type Config struct {
	APIKey    string
	APISecret string

	RESTBaseURL string
	Testnet     bool
	HTTPTimeout time.Duration
	RecvWindow  time.Duration

	// RequestsPerSecond throttles REST calls; 0 uses the default.
	RequestsPerSecond float64

	ProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.APISecret = strings.TrimSpace(out.APISecret)
	out.RESTBaseURL = strings.TrimRight(strings.TrimSpace(out.RESTBaseURL), "/")
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = mainnetRESTURL
		if out.Testnet {
			out.RESTBaseURL = testnetRESTURL
		}
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.RecvWindow <= 0 {
		out.RecvWindow = 5 * time.Second
	}
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = 10
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	return out
}
