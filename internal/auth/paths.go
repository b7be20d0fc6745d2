package auth

import (
	"net/http"
	"path"
	"strings"
)

// IsPublicPath reports whether requestPath bypasses authentication. Paths
// carrying encoded separators or dots never match. Matching is done on
// cleaned, segment aligned prefixes, so "/health" matches "/health/live"
// but not "/healthz".
func IsPublicPath(requestPath string, publicPaths []string) bool {
	lower := strings.ToLower(requestPath)
	if strings.Contains(lower, "%2f") || strings.Contains(lower, "%2e") {
		return false
	}

	cleaned := cleanPath(requestPath)
	for _, p := range publicPaths {
		public := cleanPath(p)
		if public == "/" || cleaned == public || strings.HasPrefix(cleaned, public+"/") {
			return true
		}
	}
	return false
}

func cleanPath(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// WrapWithPublicPaths applies authMw to every request except those on
// publicPaths.
func WrapWithPublicPaths(
	authMw func(http.Handler) http.Handler,
	publicPaths []string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := authMw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}
			protected.ServeHTTP(w, r)
		})
	}
}
