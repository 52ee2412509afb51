package mcp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Transport policy failures. The HTTP adapter maps these to status codes
// before any message reaches the dispatcher.
var (
	ErrOriginNotAllowed   = errors.New("origin not allowed")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// DefaultAllowedHosts is the default origin allow-list. Exact matches and
// subdomains are accepted.
var DefaultAllowedHosts = []string{"mcpcentral.io", "mcp.time.mcpcentral.io"}

// loopback hostnames always pass the origin check.
var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
}

// Policy holds the transport-level validation rules: which origins may call
// the HTTP endpoint and which protocol versions are accepted. Both checks
// are skipped when the corresponding signal is absent, since not every
// transport supplies one.
type Policy struct {
	AllowedHosts []string
}

// DefaultPolicy returns a Policy with the default origin allow-list.
func DefaultPolicy() Policy {
	return Policy{AllowedHosts: DefaultAllowedHosts}
}

// CheckOrigin validates a declared Origin header value. An empty origin is
// accepted; a malformed one is not.
func (p Policy) CheckOrigin(origin string) error {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("%w: malformed origin %q", ErrOriginNotAllowed, origin)
	}

	host := strings.ToLower(u.Hostname())
	if loopbackHosts[host] {
		return nil
	}
	for _, allowed := range p.AllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrOriginNotAllowed, origin)
}

// CheckProtocolVersion validates a declared MCP-Protocol-Version header
// value. An empty value is accepted.
func (p Policy) CheckProtocolVersion(version string) error {
	if version == "" {
		return nil
	}
	if !supportedProtocolVersions[version] {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	return nil
}
