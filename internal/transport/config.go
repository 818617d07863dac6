package transport

import (
	"net"
	"strconv"
	"time"
)

// DefaultPort is the customary Electrum TLS port.
const DefaultPort uint16 = 50002

// Config describes one server endpoint. Zero timeouts mean no timeout.
type Config struct {
	Host              string
	Port              uint16
	TLS               bool
	VerifyCertificate bool
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	DialTimeout       time.Duration
}

// DefaultConfig returns a TLS config for host on DefaultPort with
// certificate verification on.
func DefaultConfig(host string) Config {
	return Config{Host: host, Port: DefaultPort, TLS: true, VerifyCertificate: true}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.FormatUint(uint64(c.Port), 10))
}

func (c Config) scheme() string {
	if c.TLS {
		return "ssl"
	}
	return "tcp"
}
