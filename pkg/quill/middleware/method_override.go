package middleware

import (
	"net/http"
	"strings"
)

// MethodOverrideField is the form field HTML forms use to send other verbs
const MethodOverrideField = "_method"

var overridable = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride lets HTML forms send PUT, PATCH and DELETE through POST.
// It wraps the router so the rewritten method is used for route matching.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			method := strings.ToUpper(r.Header.Get("X-HTTP-Method-Override"))
			if method == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				if err := r.ParseForm(); err != nil {
					http.Error(w, "Failed to parse form", http.StatusBadRequest)
					return
				}
				method = strings.ToUpper(r.PostForm.Get(MethodOverrideField))
			}
			if overridable[method] {
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}
