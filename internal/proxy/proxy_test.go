package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type upstreamRecorder struct {
	path    string
	query   string
	host    string
	upgrade string
}

// newTestUpstream records what the upstream saw and issues a Set-Cookie
// header scoped to the upstream's own origin.
func newTestUpstream(t *testing.T, rec *upstreamRecorder) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.host = r.Host
		rec.upgrade = r.Header.Get("Upgrade")
		w.Header().Add("Set-Cookie", "session=abc123; Domain=upstream.internal; Path=/app; HttpOnly")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream ok"))
	}))
}

func newTestProxy(t *testing.T, upstream string, observer func([]string)) *Proxy {
	t.Helper()
	p, err := New(&Config{
		Rules:  DefaultRules(upstream, observer),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return p
}

func TestProxy_APIPrefixStrippedAndCookiesRewritten(t *testing.T) {
	var rec upstreamRecorder
	upstream := newTestUpstream(t, &rec)
	defer upstream.Close()

	p := newTestProxy(t, upstream.URL, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/foo?x=1", nil)
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "/foo", rec.path, "matched prefix should be stripped")
	require.Equal(t, "x=1", rec.query, "query should be preserved")

	cookies := w.Header().Values("Set-Cookie")
	require.Len(t, cookies, 1)
	require.Contains(t, cookies[0], "session=abc123")
	require.Contains(t, cookies[0], "Domain=localhost", "Domain should be rewritten")
	require.Contains(t, cookies[0], "Path=/", "Path should be rewritten")
	require.NotContains(t, cookies[0], "Path=/app", "upstream Path should be replaced")
	require.Contains(t, cookies[0], "HttpOnly", "other attributes should survive")
}

func TestProxy_SharePrefixKeepsCookiePath(t *testing.T) {
	var rec upstreamRecorder
	upstream := newTestUpstream(t, &rec)
	defer upstream.Close()

	p := newTestProxy(t, upstream.URL, nil)

	req := httptest.NewRequest(http.MethodGet, "/share/xyz", nil)
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "/xyz", rec.path)

	cookies := w.Header().Values("Set-Cookie")
	require.Len(t, cookies, 1)
	require.Contains(t, cookies[0], "Domain=localhost", "Domain should be rewritten")
	require.Contains(t, cookies[0], "Path=/app", "Path should be left untouched")
}

func TestProxy_HostHeaderPreserved(t *testing.T) {
	var rec upstreamRecorder
	upstream := newTestUpstream(t, &rec)
	defer upstream.Close()

	p := newTestProxy(t, upstream.URL, nil)

	req := httptest.NewRequest(http.MethodGet, "/dl/report.pdf", nil)
	req.Host = "localhost:5173"
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "/report.pdf", rec.path)
	require.Equal(t, "localhost:5173", rec.host, "Host should not be rewritten")
}

func TestProxy_UpgradeOnlyOnAPI(t *testing.T) {
	var rec upstreamRecorder
	upstream := newTestUpstream(t, &rec)
	defer upstream.Close()

	p := newTestProxy(t, upstream.URL, nil)

	upgradeReq := func(path string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		return req
	}

	w := httptest.NewRecorder()
	p.ServeHTTP(w, upgradeReq("/api/live"))
	require.Equal(t, "websocket", rec.upgrade, "/api should forward the upgrade")

	rec.upgrade = ""
	w = httptest.NewRecorder()
	p.ServeHTTP(w, upgradeReq("/share/live"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, rec.upgrade, "/share should not forward the upgrade")
}

func TestProxy_CookieObserverOnlyOnAPI(t *testing.T) {
	var rec upstreamRecorder
	upstream := newTestUpstream(t, &rec)
	defer upstream.Close()

	var observed [][]string
	p := newTestProxy(t, upstream.URL, func(setCookies []string) {
		observed = append(observed, setCookies)
	})

	w := httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/share/xyz", nil))
	require.Empty(t, observed, "/share should not report cookies")

	w = httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/login", nil))
	require.Len(t, observed, 1, "/api should report cookies once")
	require.Len(t, observed[0], 1)
	require.Contains(t, observed[0][0], "Domain=upstream.internal",
		"observer should see the raw upstream value")
}

func TestProxy_UnmatchedPathNotForwarded(t *testing.T) {
	var rec upstreamRecorder
	upstream := newTestUpstream(t, &rec)
	defer upstream.Close()

	p := newTestProxy(t, upstream.URL, nil)

	for _, path := range []string{"/", "/apifoo", "/assets/app.js"} {
		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, w.Code, "path %q should not match", path)
	}
	require.Empty(t, rec.path, "upstream should never be reached")
}

func TestProxy_UpstreamDown(t *testing.T) {
	var rec upstreamRecorder
	upstream := newTestUpstream(t, &rec)
	target := upstream.URL
	upstream.Close()

	p := newTestProxy(t, target, nil)

	w := httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/foo", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)

	body, _ := io.ReadAll(w.Result().Body)
	require.True(t, strings.Contains(string(body), "Bad Gateway"))
}

func TestProxy_UnparsableCookieDroppedAndLogged(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "session=abc123; Domain=upstream.internal; Path=/app")
		w.Header().Add("Set-Cookie", "no-equals-sign-here")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	core, logs := observer.New(zap.DebugLevel)
	p, err := New(&Config{
		Rules:  DefaultRules(upstream.URL, nil),
		Logger: zap.New(core),
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/login", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Header().Values("Set-Cookie")
	require.Len(t, cookies, 1, "only the parsable cookie survives the rewrite")
	require.Contains(t, cookies[0], "session=abc123")
	require.Equal(t, 1, logs.FilterMessage("dropping unparsable set-cookie values").Len(),
		"the drop should be diagnosable")
}

func TestProxy_MethodAndBodyPreserved(t *testing.T) {
	var gotMethod, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	p := newTestProxy(t, upstream.URL, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/estimates", strings.NewReader(`{"title":"new"}`))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, `{"title":"new"}`, gotBody)
}
