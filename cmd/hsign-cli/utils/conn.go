package utils

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/seclave/hsign/pkg/client"
	"github.com/seclave/hsign/pkg/event"
)

const DefaultNATSURL = "nats://127.0.0.1:4222"

// Connection bundles the device client with the NATS connection it
// rides on, so commands can close both in one call.
type Connection struct {
	Client *client.Client
	nc     *nats.Conn
}

func (c *Connection) Close() {
	c.nc.Close()
}

// Dial connects to NATS and builds a device client on top of it.
func Dial(natsURL, subject string, timeout time.Duration) (*Connection, error) {
	if natsURL == "" {
		natsURL = DefaultNATSURL
	}
	if subject == "" {
		subject = event.DefaultRequestSubject
	}

	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}

	cl, err := client.New(client.Options{
		NatsConn: nc,
		Subject:  subject,
		Timeout:  timeout,
	})
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Connection{Client: cl, nc: nc}, nil
}
