package natsbridge

import "testing"

func TestConnectFailsFastOnUnreachableServer(t *testing.T) {
	// No embedded broker is started here (the bridge is optional
	// infrastructure); Connect must fail cleanly rather than hang so a
	// caller can choose to run the core without it.
	if _, err := Connect("nats://127.0.0.1:1", "flame2.events"); err == nil {
		t.Error("expected connection failure against an unreachable address")
	}
}
