package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders returns an HTTP middleware that sets the standard security
// response headers. HTTPS redirects and HSTS are only enabled when
// production is set.
func SecureHeaders(production bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(production),
		STSIncludeSubdomains:  production,
		IsDevelopment:         !production,
	}).Handler
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}
