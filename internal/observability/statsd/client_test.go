package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestQualify(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "rolegate"}
	tests := map[string]string{
		" token/grant ": "rolegate.token_grant",
		"role..fetch":   "rolegate.role.fetch",
		"":              "",
		"..":            "",
	}
	for input, want := range tests {
		if got := c.qualify(input); got != want {
			t.Fatalf("qualify(%q) = %q, want %q", input, got, want)
		}
	}

	bare := &Client{}
	if got := bare.qualify("token.grant"); got != "token.grant" {
		t.Fatalf("qualify without prefix = %q", got)
	}
}

func TestEncodeTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " rolegate "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	got := encodeTags(global, local)
	want := "|#env:stage,result:success,service:rolegate"
	if got != want {
		t.Fatalf("encodeTags mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := encodeTags(nil, nil); got != "" {
		t.Fatalf("encodeTags(nil, nil) = %q, want empty string", got)
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:8125"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Count("token.grant", 1, nil)
	c.Timing("token.grant.duration", time.Second, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var nilClient *Client
	nilClient.Count("x", 1, nil)
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	c, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     "rolegate",
		GlobalTags: map[string]string{"env": "test"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	c.Count("token.grant", 2, map[string]string{"grant": "refresh_token"})

	buf := make([]byte, 512)
	if err := pc.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(buf[:n])
	if !strings.HasPrefix(line, "rolegate.token.grant:2|c|#") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "grant:refresh_token") || !strings.Contains(line, "env:test") {
		t.Fatalf("missing tags in %q", line)
	}
}
