package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ConnectivityTimeout bounds the pre-flight check. Exceeding it is
// reported the same as any other connectivity failure.
const ConnectivityTimeout = 15 * time.Second

// ConnectivityError is returned when the pre-flight check cannot reach
// the URL.
type ConnectivityError struct {
	URL string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s is not reachable: %s", e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// CheckConnectivity issues a HEAD request against the URL. Any HTTP
// response proves the host is reachable; only transport failures (and
// timeouts) are reported.
func CheckConnectivity(ctx context.Context, client *http.Client, url string) error {
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithTimeout(ctx, ConnectivityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return &ConnectivityError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &ConnectivityError{URL: url, Err: err}
	}
	_ = resp.Body.Close()

	log.Debugf("Pre-flight check for %s returned %s\n", url, resp.Status)
	return nil
}
