package auth

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/biolink/handler"
)

// TokenExtractorFunc pulls a raw token out of the request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// Middleware rejects requests without a valid bearer token and stores the
// claims in the request context.
func Middleware(svc *Service, extractors ...TokenExtractorFunc) func(http.Handler) http.Handler {
	if len(extractors) == 0 {
		extractors = []TokenExtractorFunc{BearerTokenExtractor}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extract(r, extractors)
			if err != nil {
				_ = handler.JSONError(handler.ErrUnauthorized.Wrap(err)).Render(w, r)
				return
			}
			claims, err := svc.Parse(token)
			if err != nil {
				_ = handler.JSONError(handler.ErrUnauthorized.Wrap(err)).Render(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must run after Middleware.
func RequireAdmin(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			if !svc.IsAdmin(claims) {
				_ = handler.JSONError(handler.ErrForbidden).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extract(r *http.Request, extractors []TokenExtractorFunc) (string, error) {
	err := ErrMissingToken
	for _, ex := range extractors {
		token, exErr := ex(r)
		if exErr == nil && token != "" {
			return token, nil
		}
		if exErr != nil {
			err = exErr
		}
	}
	return "", err
}

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// CookieTokenExtractor reads the token from a cookie.
func CookieTokenExtractor(name string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", ErrMissingToken
		}
		return c.Value, nil
	}
}
