package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/gridloop/gridfilter/pkg/logger"
)

// NATSNotifier mirrors render/merge notifications onto NATS subjects so
// out-of-process collaborators (widget reinitializers, cache warmers)
// can react to grid re-renders. Publishing is fire-and-forget: a lost
// notification never blocks a render.
type NATSNotifier struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSNotifier(url, prefix string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	if prefix == "" {
		prefix = "gridfilter"
	}
	return &NATSNotifier{conn: conn, prefix: prefix}, nil
}

// Bind forwards render and merge completions from the in-process bus.
func (n *NATSNotifier) Bind(bus *Bus) {
	bus.Subscribe(RenderComplete, n.publish)
	bus.Subscribe(MergeComplete, n.publish)
}

func (n *NATSNotifier) publish(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	subject := n.prefix + "." + string(e.Kind)
	if err := n.conn.Publish(subject, payload); err != nil {
		logger.Log.Warn().Err(err).Str("subject", subject).Msg("failed to publish grid event")
	}
}

func (n *NATSNotifier) Close() {
	n.conn.Close()
}
