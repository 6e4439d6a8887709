package api

import (
	"strings"

	"github.com/desertthunder/oracle/internal/shared"
)

// LocalBaseURL is the base URL of the local development API.
const LocalBaseURL = "http://localhost:8000/api"

// ResolveBaseURL returns the API base URL for host.
func ResolveBaseURL(host, productionURL string) string {
	host = strings.TrimSpace(host)
	switch {
	case host == "localhost" || host == "127.0.0.1":
		return LocalBaseURL
	case strings.Contains(host, "ngrok"):
		return "https://" + host + "/api"
	default:
		return strings.TrimRight(productionURL, "/")
	}
}

// BaseURLFromConfig applies the explicit base_url override before host detection.
func BaseURLFromConfig(cfg shared.APIConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return ResolveBaseURL(cfg.Host, cfg.ProductionURL)
}
