// Package natsbridge is the optional NATS bridge (C15): it republishes
// eventbus notifications onto a NATS subject for collaborators outside
// the process. It is never required for the core to run correctly;
// connection failure is logged and the bridge becomes a no-op rather
// than aborting the runtime, the same posture this codebase's NATS
// client takes toward reconnect handling.
package natsbridge

import (
	"encoding/json"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/flame2-go/flame2/internal/eventbus"
	"github.com/flame2-go/flame2/internal/logx"
)

// Bridge forwards every event published on a Bus to a NATS subject.
type Bridge struct {
	conn    *nc.Conn
	subject string
	log     *logx.Logger
	stop    chan struct{}
}

// Connect dials url and returns a Bridge publishing to subject. A
// connection failure is returned to the caller, who may choose to run
// without the bridge rather than fail the whole runtime.
func Connect(url, subject string) (*Bridge, error) {
	log := logx.New("natsbridge")
	opts := []nc.Option{
		nc.ReconnectWait(2 * time.Second),
		nc.MaxReconnects(-1),
		nc.DisconnectErrHandler(func(conn *nc.Conn, err error) {
			if err != nil {
				log.Warnf("disconnected: %v", err)
			}
		}),
		nc.ReconnectHandler(func(conn *nc.Conn) {
			log.Infof("reconnected to %s", conn.ConnectedUrl())
		}),
	}
	conn, err := nc.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: connect to %s: %w", url, err)
	}
	return &Bridge{conn: conn, subject: subject, log: log, stop: make(chan struct{})}, nil
}

// Forward subscribes to bus and republishes every event as JSON until
// Close is called. Runs until Close in its own goroutine.
func (b *Bridge) Forward(bus *eventbus.Bus) {
	ch := bus.Subscribe()
	go func() {
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				b.publish(event)
			case <-b.stop:
				bus.Unsubscribe(ch)
				return
			}
		}
	}()
}

func (b *Bridge) publish(event eventbus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.Errorf("marshal event: %v", err)
		return
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		b.log.Warnf("publish to %s: %v", b.subject, err)
	}
}

// Close stops forwarding and closes the NATS connection.
func (b *Bridge) Close() {
	close(b.stop)
	b.conn.Close()
}
