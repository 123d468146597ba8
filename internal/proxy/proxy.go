package proxy

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Rule maps a path prefix to an upstream origin, with per-route rewriting
// behavior. The rule set is static configuration: built once at startup and
// never mutated.
type Rule struct {
	// Prefix is the inbound path prefix to match, e.g. "/api".
	Prefix string
	// Target is the upstream origin, e.g. "http://localhost:3000".
	Target string
	// CookieDomain replaces the Domain attribute of upstream Set-Cookie
	// headers when non-empty.
	CookieDomain string
	// CookiePath replaces the Path attribute of upstream Set-Cookie
	// headers when non-empty.
	CookiePath string
	// RewriteHost rewrites the outbound Host header to the target's host.
	// When false the client's Host header is forwarded unchanged.
	RewriteHost bool
	// InsecureSkipVerify disables TLS certificate verification against the
	// upstream.
	InsecureSkipVerify bool
	// AllowUpgrade permits protocol-upgrade (websocket) requests through
	// this rule. Rules without it have the upgrade headers stripped.
	AllowUpgrade bool
	// StripPrefix removes the matched prefix from the forwarded path, so
	// "/api/foo" reaches the upstream as "/foo".
	StripPrefix bool
	// CookieObserver, when set, is invoked with the raw Set-Cookie values
	// of each upstream response before they are rewritten.
	CookieObserver func(setCookies []string)
}

// Config holds dev gateway configuration
type Config struct {
	Rules  []Rule
	Logger *zap.Logger
	// Transport overrides the reverse proxy transport. Used in tests to
	// supply a TLS-aware transport for test servers.
	Transport http.RoundTripper
}

// Proxy forwards matched requests to their rule's upstream origin. It holds
// no per-request state; each forwarded connection is handled independently.
type Proxy struct {
	rules  []*compiledRule
	logger *zap.Logger
}

type compiledRule struct {
	Rule
	target *url.URL
	rp     *httputil.ReverseProxy
	logger *zap.Logger
}

// New compiles the rule set into per-rule reverse proxies.
func New(cfg *Config) (*Proxy, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("proxy")

	p := &Proxy{logger: logger}
	for _, rule := range cfg.Rules {
		cr, err := compileRule(rule, cfg.Transport, logger)
		if err != nil {
			return nil, err
		}
		p.rules = append(p.rules, cr)
	}
	return p, nil
}

func compileRule(rule Rule, transport http.RoundTripper, logger *zap.Logger) (*compiledRule, error) {
	target, err := url.Parse(rule.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL for prefix %s: %w", rule.Prefix, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported target scheme %q for prefix %s", target.Scheme, rule.Prefix)
	}

	cr := &compiledRule{Rule: rule, target: target, logger: logger}
	cr.rp = &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			if cr.StripPrefix {
				req.URL.Path = stripPrefix(req.URL.Path, cr.Prefix)
				req.URL.RawPath = ""
			}
			if cr.RewriteHost {
				req.Host = target.Host
			}
		},
		ModifyResponse: cr.rewriteCookies,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream request failed",
				zap.String("prefix", cr.Prefix),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			http.Error(w, "Bad Gateway", http.StatusBadGateway)
		},
	}

	switch {
	case transport != nil:
		cr.rp.Transport = transport
	case rule.InsecureSkipVerify:
		cr.rp.Transport = &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	return cr, nil
}

// ServeHTTP implements http.Handler. The most specific (longest) configured
// prefix wins; unmatched paths are not forwarded.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rule := p.match(r.URL.Path)
	if rule == nil {
		http.NotFound(w, r)
		return
	}

	if !rule.AllowUpgrade && isUpgrade(r.Header) {
		// Downgrade to a plain request; only upgrade-enabled rules may
		// switch protocols.
		r.Header.Del("Upgrade")
		r.Header.Del("Connection")
	}

	p.logger.Debug("forwarding request",
		zap.String("prefix", rule.Prefix),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))

	rule.rp.ServeHTTP(w, r)
}

func (p *Proxy) match(path string) *compiledRule {
	var best *compiledRule
	for _, rule := range p.rules {
		if !matchesPrefix(path, rule.Prefix) {
			continue
		}
		if best == nil || len(rule.Prefix) > len(best.Prefix) {
			best = rule
		}
	}
	return best
}

// matchesPrefix is segment-aware: "/api" matches "/api" and "/api/foo" but
// not "/apifoo".
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func stripPrefix(path, prefix string) string {
	stripped := strings.TrimPrefix(path, prefix)
	if stripped == "" {
		return "/"
	}
	return stripped
}

func isUpgrade(h http.Header) bool {
	return h.Get("Upgrade") != "" &&
		strings.Contains(strings.ToLower(h.Get("Connection")), "upgrade")
}

// rewriteCookies rescopes upstream Set-Cookie headers per the rule so the
// cookies are valid for the client-facing origin.
func (cr *compiledRule) rewriteCookies(resp *http.Response) error {
	raw := resp.Header.Values("Set-Cookie")
	if len(raw) == 0 {
		return nil
	}

	if cr.CookieObserver != nil {
		cr.CookieObserver(raw)
	}

	if cr.CookieDomain == "" && cr.CookiePath == "" {
		return nil
	}

	cookies := resp.Cookies()
	if len(cookies) < len(raw) {
		// Rewriting re-serializes parsed cookies, so values the parser
		// rejects do not survive.
		cr.logger.Debug("dropping unparsable set-cookie values",
			zap.String("prefix", cr.Prefix),
			zap.Int("received", len(raw)),
			zap.Int("parsed", len(cookies)))
	}
	resp.Header.Del("Set-Cookie")
	for _, c := range cookies {
		if cr.CookieDomain != "" {
			c.Domain = cr.CookieDomain
		}
		if cr.CookiePath != "" {
			c.Path = cr.CookiePath
		}
		resp.Header.Add("Set-Cookie", c.String())
	}
	return nil
}

// CreateServer wraps the proxy in an http.Server bound to addr.
func (p *Proxy) CreateServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      p,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // longer for streaming responses
		IdleTimeout:  60 * time.Second,
	}
}
