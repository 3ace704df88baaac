package models

import (
	"fmt"
	"net/url"
	"strconv"
)

// Proxy types accepted by the governor.
const (
	ProxyHTTP   = "http"
	ProxyHTTPS  = "https"
	ProxySOCKS4 = "socks4"
	ProxySOCKS5 = "socks5"
)

// ProxyConfig is one proxy endpoint in the governor's rotation.
type ProxyConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	Type     string `json:"type" mapstructure:"type"` // http, https, socks4, socks5
}

// URL renders the proxy as a URL string suitable for browser launch options
// and HTTP transports.
func (p ProxyConfig) URL() string {
	scheme := p.Type
	if scheme == "" {
		scheme = ProxyHTTP
	}
	u := &url.URL{
		Scheme: scheme,
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}

// Validate checks that the endpoint is well-formed.
func (p ProxyConfig) Validate() error {
	if p.Host == "" {
		return fmt.Errorf("proxy: host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("proxy: invalid port %d", p.Port)
	}
	switch p.Type {
	case "", ProxyHTTP, ProxyHTTPS, ProxySOCKS4, ProxySOCKS5:
		return nil
	default:
		return fmt.Errorf("proxy: unknown type %q", p.Type)
	}
}
