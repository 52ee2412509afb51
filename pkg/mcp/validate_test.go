package mcp

import (
	"errors"
	"testing"
)

func TestCheckOrigin(t *testing.T) {
	p := DefaultPolicy()

	accepted := []string{
		"",
		"http://localhost:8787",
		"http://127.0.0.1",
		"http://0.0.0.0:3000",
		"https://mcpcentral.io",
		"https://mcp.time.mcpcentral.io",
		"https://sub.mcpcentral.io",
	}
	for _, origin := range accepted {
		if err := p.CheckOrigin(origin); err != nil {
			t.Errorf("CheckOrigin(%q) = %v, want nil", origin, err)
		}
	}

	rejected := []string{
		"https://evil.example.com",
		"https://mcpcentral.io.evil.com",
		"https://notmcpcentral.io",
		"http://a b.com",
		"not-a-url",
	}
	for _, origin := range rejected {
		if err := p.CheckOrigin(origin); !errors.Is(err, ErrOriginNotAllowed) {
			t.Errorf("CheckOrigin(%q) = %v, want ErrOriginNotAllowed", origin, err)
		}
	}
}

func TestCheckOriginCustomHosts(t *testing.T) {
	p := Policy{AllowedHosts: []string{"example.org"}}

	if err := p.CheckOrigin("https://tools.example.org"); err != nil {
		t.Errorf("subdomain of configured host rejected: %v", err)
	}
	if err := p.CheckOrigin("https://mcpcentral.io"); !errors.Is(err, ErrOriginNotAllowed) {
		t.Errorf("host outside configured list accepted")
	}
}

func TestCheckProtocolVersion(t *testing.T) {
	p := DefaultPolicy()

	for _, v := range []string{"", "2025-06-18", "2025-03-26", "2024-11-05"} {
		if err := p.CheckProtocolVersion(v); err != nil {
			t.Errorf("CheckProtocolVersion(%q) = %v, want nil", v, err)
		}
	}
	for _, v := range []string{"1999-01-01", "2.0", "latest"} {
		if err := p.CheckProtocolVersion(v); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("CheckProtocolVersion(%q) = %v, want ErrUnsupportedVersion", v, err)
		}
	}
}
