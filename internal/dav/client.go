// Package dav reaches WebDAV and CalDAV servers: event documents are kept
// as JSON files in a WebDAV collection, and candidate dates can be pushed
// to a CalDAV calendar.
package dav

import "net/http"

const userAgent = "datepoll/1.0"

// basicAuthTransport adds Basic Auth and a User-Agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// NewHTTPClient returns a client that authenticates as username. An empty
// username sends no credentials.
func NewHTTPClient(username, password string) *http.Client {
	return &http.Client{Transport: &basicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}
}
