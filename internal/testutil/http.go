package testutil

import (
	"net/http"
	"net/url"
	"sync"
)

// HostRecorder sends every request to one test server, whatever host the
// request URL names, and remembers the hosts that were asked for.
type HostRecorder struct {
	target   *url.URL
	underlay http.RoundTripper

	mu    sync.Mutex
	hosts []string
}

func (rt *HostRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.hosts = append(rt.hosts, req.URL.Host)
	rt.mu.Unlock()

	r := req.Clone(req.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return rt.underlay.RoundTrip(r)
}

// Hosts returns the hosts requested so far.
func (rt *HostRecorder) Hosts() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.hosts...)
}

// NewClient returns a client routed to the server at addr together with
// its recording transport.
func NewClient(addr string) (*http.Client, *HostRecorder) {
	u, _ := url.Parse(addr)
	rt := &HostRecorder{target: u, underlay: http.DefaultTransport}
	return &http.Client{Transport: rt}, rt
}
