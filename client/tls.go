package client

import (
	"crypto/tls"
	"net/http"
)

// newTransport builds the HTTP transport. With insecure set, server
// certificate verification is skipped (development only).
func newTransport(insecure bool) *http.Transport {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if ok {
		transport = transport.Clone()
	} else {
		transport = &http.Transport{}
	}

	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure,
	}

	return transport
}
