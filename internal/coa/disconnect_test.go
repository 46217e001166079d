package coa

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2866"
)

// startFakeNAS runs a RADIUS dynamic-authorization responder on a random UDP
// port and returns the host and port to reach it.
func startFakeNAS(t *testing.T, secret string, respond func(*radius.Request) radius.Code) (string, int) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}

	server := radius.PacketServer{
		Handler: radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {
			_ = w.Write(r.Response(respond(r)))
		}),
		SecretSource: radius.StaticSecretSource([]byte(secret)),
	}
	go func() { _ = server.Serve(conn) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	host, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("SplitHostPort() error = %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi(%q) error = %v", portStr, err)
	}
	return host, port
}

func TestDisconnectAcknowledged(t *testing.T) {
	var gotSession string
	host, port := startFakeNAS(t, "s3cret", func(r *radius.Request) radius.Code {
		gotSession = rfc2866.AcctSessionID_GetString(r.Packet)
		return radius.CodeDisconnectACK
	})

	d := NewDisconnector("s3cret", port, 5*time.Second)
	if err := d.Disconnect(context.Background(), "sess-42", host); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if gotSession != "sess-42" {
		t.Errorf("Acct-Session-Id = %q, want sess-42", gotSession)
	}
}

func TestDisconnectRefused(t *testing.T) {
	host, port := startFakeNAS(t, "s3cret", func(*radius.Request) radius.Code {
		return radius.CodeDisconnectNAK
	})

	d := NewDisconnector("s3cret", port, 5*time.Second)
	err := d.Disconnect(context.Background(), "sess-42", host)
	if !errors.Is(err, ErrDisconnectFailed) {
		t.Fatalf("Disconnect() error = %v, want ErrDisconnectFailed", err)
	}
}

func TestDisconnectTimeout(t *testing.T) {
	// A listener that never answers forces the exchange to its deadline.
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	host, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("SplitHostPort() error = %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi(%q) error = %v", portStr, err)
	}

	d := NewDisconnector("s3cret", port, 200*time.Millisecond)
	err = d.Disconnect(context.Background(), "sess-42", host)
	if !errors.Is(err, ErrDisconnectTimeout) {
		t.Fatalf("Disconnect() error = %v, want ErrDisconnectTimeout", err)
	}
}

func TestDisconnectorDefaults(t *testing.T) {
	d := NewDisconnector("s3cret", 0, 0)
	if d.port != DefaultPort {
		t.Errorf("port = %d, want %d", d.port, DefaultPort)
	}
	if d.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", d.timeout, DefaultTimeout)
	}
}
