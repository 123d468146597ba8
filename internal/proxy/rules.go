package proxy

// DefaultRules returns the dev gateway rule table: /api, /share and /dl all
// forward to the upstream origin with their cookies rescoped to localhost.
// Only /api carries websocket upgrades, and only /api reports upstream
// Set-Cookie values to the given observer.
func DefaultRules(upstream string, apiCookieObserver func(setCookies []string)) []Rule {
	return []Rule{
		{
			Prefix:         "/api",
			Target:         upstream,
			CookieDomain:   "localhost",
			CookiePath:     "/",
			AllowUpgrade:   true,
			StripPrefix:    true,
			CookieObserver: apiCookieObserver,
		},
		{
			Prefix:       "/share",
			Target:       upstream,
			CookieDomain: "localhost",
			StripPrefix:  true,
		},
		{
			Prefix:       "/dl",
			Target:       upstream,
			CookieDomain: "localhost",
			StripPrefix:  true,
		},
	}
}
