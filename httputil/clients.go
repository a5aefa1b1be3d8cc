package httputil

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"boat_radar/config"
)

type Clients struct {
	Scraping *http.Client // proxied when PROXY_URL is set, for the rendering API
	API      *http.Client // direct, for webhooks
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	transport := &http.Transport{
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}
	if proxyCfg != nil && proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	// Rendering a marketplace page routinely takes tens of seconds.
	scraping := &http.Client{
		Timeout:   90 * time.Second,
		Transport: transport,
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 30 * time.Second},
	}
}
