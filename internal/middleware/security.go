// security.go provides Gin middleware that injects protective HTTP response headers.
// The JSON API and the static front-end get different policies: the front-end needs
// to load its own scripts and styles, the API needs nothing at all.
package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig holds configuration for security headers
type SecurityHeadersConfig struct {
	// EnableHSTS enables HTTP Strict Transport Security. Only meaningful behind TLS.
	EnableHSTS bool
	// HSTSMaxAge is the max-age value for HSTS in seconds
	HSTSMaxAge int
	// HSTSIncludeSubdomains includes subdomains in HSTS
	HSTSIncludeSubdomains bool
	// FrameOptionsValue is the value for X-Frame-Options (DENY, SAMEORIGIN); empty disables it
	FrameOptionsValue string
	// ContentSecurityPolicy is the CSP header value
	ContentSecurityPolicy string
	// ReferrerPolicy is the Referrer-Policy header value
	ReferrerPolicy string
	// PermissionsPolicy is the Permissions-Policy header value
	PermissionsPolicy string
	// CrossOriginResourcePolicy is the Cross-Origin-Resource-Policy value. The API
	// uses cross-origin so CORS-allowed browsers can still read it.
	CrossOriginResourcePolicy string
}

// FrontendSecurityHeadersConfig returns headers for the static signup page. Scripts,
// styles and fetch calls are restricted to the serving origin.
func FrontendSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		HSTSMaxAge:                31536000, // 1 year
		HSTSIncludeSubdomains:     true,
		FrameOptionsValue:         "DENY",
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; connect-src 'self'; frame-ancestors 'none'",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		PermissionsPolicy:         "geolocation=(), microphone=(), camera=()",
		CrossOriginResourcePolicy: "same-origin",
	}
}

// APISecurityHeadersConfig returns security headers suitable for the JSON endpoints
func APISecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		HSTSMaxAge:                31536000,
		HSTSIncludeSubdomains:     true,
		FrameOptionsValue:         "DENY",
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:            "no-referrer",
		CrossOriginResourcePolicy: "cross-origin",
	}
}

// WithHSTS returns a copy of config with Strict-Transport-Security switched on or off.
func (config SecurityHeadersConfig) WithHSTS(enabled bool) SecurityHeadersConfig {
	config.EnableHSTS = enabled
	return config
}

// SecurityHeadersMiddleware adds the headers described by config to every response.
func SecurityHeadersMiddleware(config SecurityHeadersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		applySecurityHeaders(c, config)
		c.Next()
	}
}

// SplitSecurityHeadersMiddleware applies the frontend policy to requests under any
// of frontendPrefixes and the API policy to everything else.
func SplitSecurityHeadersMiddleware(api, frontend SecurityHeadersConfig, frontendPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		config := api
		for _, prefix := range frontendPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				config = frontend
				break
			}
		}
		applySecurityHeaders(c, config)
		c.Next()
	}
}

func applySecurityHeaders(c *gin.Context, config SecurityHeadersConfig) {
	if config.EnableHSTS {
		hstsValue := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hstsValue += "; includeSubDomains"
		}
		c.Header("Strict-Transport-Security", hstsValue)
	}

	if config.FrameOptionsValue != "" {
		c.Header("X-Frame-Options", config.FrameOptionsValue)
	}

	c.Header("X-Content-Type-Options", "nosniff")

	if config.ContentSecurityPolicy != "" {
		c.Header("Content-Security-Policy", config.ContentSecurityPolicy)
	}
	if config.ReferrerPolicy != "" {
		c.Header("Referrer-Policy", config.ReferrerPolicy)
	}
	if config.PermissionsPolicy != "" {
		c.Header("Permissions-Policy", config.PermissionsPolicy)
	}
	if config.CrossOriginResourcePolicy != "" {
		c.Header("Cross-Origin-Resource-Policy", config.CrossOriginResourcePolicy)
	}

	c.Header("X-Permitted-Cross-Domain-Policies", "none")
	c.Header("Cross-Origin-Opener-Policy", "same-origin")
}
