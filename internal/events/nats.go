package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dirtybits/agent-reputation-oracle/internal/common"
)

// NATSPublisher publishes each message on <prefix>.<event name>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	if prefix == "" {
		return nil, fmt.Errorf("nats subject prefix must not be empty")
	}
	conn, err := nats.Connect(url,
		nats.Name("oracled"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				common.Log.Warningf("nats disconnected; %s", err.Error())
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	common.Log.Debugf("connected to nats at %s; publishing on %s.*", conn.ConnectedUrl(), prefix)
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func subject(prefix, event string) string {
	return fmt.Sprintf("%s.%s", prefix, event)
}

func (p *NATSPublisher) Publish(msg *Message) error {
	if msg.Name == "" {
		return fmt.Errorf("failed to dispatch event notification for tx %s; empty event name", msg.TxID)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject(p.prefix, msg.Name), payload)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	err := p.conn.Flush()
	p.conn.Close()
	return err
}
