// Package steam adapts the go-steam protocol client to the platform
// interfaces the farm coordinator consumes. Everything protocol-specific
// stays behind this package; the coordinator never sees go-steam types.
package steam

import (
	"time"

	"hourfarm/internal/platform"

	"github.com/hashicorp/go-retryablehttp"
)

type Dialer struct {
	http *retryablehttp.Client
}

func NewDialer() *Dialer {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil
	return &Dialer{http: rc}
}

// Dial opens a fresh connection and starts the logon handshake. The
// returned Conn reports the outcome through its event channel.
func (d *Dialer) Dial(opts platform.ConnectOptions) (platform.Conn, error) {
	c := newConn(opts, d.http)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}
