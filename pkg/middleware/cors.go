package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures which browser origins may call the storefront API.
type CORSConfig struct {
	// AllowedOrigins lists exact origins ("https://shop.neomart.example"),
	// subdomain patterns ("https://*.neomart.example") or "*".
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// ExposedHeaders are readable by browser scripts; the UI needs
	// X-Cart-Version to detect stale carts.
	ExposedHeaders []string
	// MaxAge caches preflight results, in seconds. Zero means one hour.
	MaxAge           int
	AllowCredentials bool
	// Environment "development" always answers with the wildcard origin.
	Environment string
}

var (
	defaultMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultHeaders = []string{"Accept", "Content-Type", CorrelationHeader, SessionHeader}
)

// DefaultCORSConfig returns a permissive configuration for local development
// of the storefront UI.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: defaultMethods,
		AllowedHeaders: defaultHeaders,
		ExposedHeaders: []string{CorrelationHeader, "X-Cart-Version"},
		MaxAge:         3600,
		Environment:    "development",
	}
}

// corsPolicy is a CORSConfig compiled once at startup into the header values
// written on every response.
type corsPolicy struct {
	wildcard    bool
	exact       map[string]struct{}
	suffixes    []originSuffix
	credentials bool

	methods string
	headers string
	exposed string
	maxAge  string
}

// originSuffix matches "scheme://<anything>.domain".
type originSuffix struct {
	scheme string
	domain string
}

func compileCORS(cfg CORSConfig) *corsPolicy {
	methods, headers, maxAge := cfg.AllowedMethods, cfg.AllowedHeaders, cfg.MaxAge
	if len(methods) == 0 {
		methods = defaultMethods
	}
	if len(headers) == 0 {
		headers = defaultHeaders
	}
	if maxAge == 0 {
		maxAge = 3600
	}

	p := &corsPolicy{
		wildcard: cfg.Environment == "development",
		exact:    make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:  strings.Join(methods, ", "),
		headers:  strings.Join(headers, ", "),
		exposed:  strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:   strconv.Itoa(maxAge),
	}
	for _, o := range cfg.AllowedOrigins {
		switch {
		case o == "*":
			p.wildcard = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			p.suffixes = append(p.suffixes, originSuffix{scheme: scheme + "://", domain: host})
		default:
			p.exact[o] = struct{}{}
		}
	}
	p.credentials = cfg.AllowCredentials && !p.wildcard
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, s := range p.suffixes {
		rest, ok := strings.CutPrefix(origin, s.scheme)
		if ok && strings.HasSuffix(rest, s.domain) && len(rest) > len(s.domain) {
			return true
		}
	}
	return false
}

// CORS returns middleware that writes Cross-Origin Resource Sharing headers
// and answers preflight requests with 204.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	p := compileCORS(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")

			switch {
			case p.wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && p.allows(origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			h.Set("Access-Control-Allow-Methods", p.methods)
			h.Set("Access-Control-Allow-Headers", p.headers)
			if p.exposed != "" {
				h.Set("Access-Control-Expose-Headers", p.exposed)
			}
			h.Set("Access-Control-Max-Age", p.maxAge)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
