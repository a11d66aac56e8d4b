package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// XMLCurlBasicAuth guards the xml_curl endpoint. With no credentials
// configured the endpoint is open.
func XMLCurlBasicAuth(user, pass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if user == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="fsxml"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !equal(u, user) || !equal(p, pass) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenAuth accepts "Authorization: Bearer <token>" or the X-Health-Token
// header. An empty configured token refuses every request.
func TokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var got string
			if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				got = strings.TrimSpace(v)
			}
			if got == "" {
				got = r.Header.Get("X-Health-Token")
			}
			if token == "" || got == "" || !equal(got, token) {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
