package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/getlinkd/linkd/pkg/logging"
)

// Datagram commands.
const (
	cmdRegister   = "register"
	cmdUnregister = "unregister"
	cmdAck        = "ack"
)

// ackTimeout is how long Register waits for a registry acknowledgment before
// treating the broadcast as fire-and-forget.
const ackTimeout = 2 * time.Second

// datagram is the JSON wire form of a registry message.
type datagram struct {
	Cmd     string   `json:"cmd"`
	Aliases []string `json:"aliases,omitempty"`
	Port    int      `json:"port,omitempty"`
}

// UDPClient is the default discovery client: it broadcasts registration
// datagrams over UDP and optionally collects a single acknowledgment.
// The zero value is not usable; use NewUDPClient.
type UDPClient struct {
	addr     string
	interval time.Duration
	ackWait  time.Duration
	log      *slog.Logger
}

// UDPOption configures a UDPClient.
type UDPOption func(*UDPClient)

// WithAddr sets the registry address. Defaults to the limited broadcast
// address on DefaultPort.
func WithAddr(addr string) UDPOption {
	return func(c *UDPClient) { c.addr = addr }
}

// WithInterval sets the re-registration cadence the client reports.
func WithInterval(d time.Duration) UDPOption {
	return func(c *UDPClient) { c.interval = d }
}

// WithLogger sets the client's logger.
func WithLogger(log *slog.Logger) UDPOption {
	return func(c *UDPClient) {
		if log != nil {
			c.log = log
		}
	}
}

// NewUDPClient creates a discovery client for the given registry address.
func NewUDPClient(opts ...UDPOption) *UDPClient {
	c := &UDPClient{
		addr:     fmt.Sprintf("255.255.255.255:%d", DefaultPort),
		interval: DefaultReregisterInterval,
		ackWait:  ackTimeout,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReregisterInterval implements Registrar.
func (c *UDPClient) ReregisterInterval() time.Duration {
	return c.interval
}

// Register implements Registrar. It broadcasts the advertisement and waits
// briefly for an acknowledgment; a missing acknowledgment is not an error,
// since broadcast registries may simply not be present.
func (c *UDPClient) Register(aliases []string, port int) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, datagram{Cmd: cmdRegister, Aliases: aliases, Port: port}); err != nil {
		return fmt.Errorf("register broadcast: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.ackWait)); err != nil {
		return fmt.Errorf("register ack deadline: %w", err)
	}
	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		c.log.Debug("no registry acknowledgment", "addr", c.addr)
		return nil
	}

	var ack datagram
	if err := json.Unmarshal(buf[:n], &ack); err != nil || ack.Cmd != cmdAck {
		c.log.Debug("unexpected registry response", "addr", c.addr)
	}
	return nil
}

// Unregister implements Registrar. Withdrawal is fire-and-forget.
func (c *UDPClient) Unregister(port int) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, datagram{Cmd: cmdUnregister, Port: port}); err != nil {
		return fmt.Errorf("unregister broadcast: %w", err)
	}
	return nil
}

func (c *UDPClient) dial() (net.Conn, error) {
	conn, err := net.Dial("udp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dial registry %s: %w", c.addr, err)
	}
	if err := enableBroadcast(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable broadcast: %w", err)
	}
	return conn, nil
}

func send(conn net.Conn, d datagram) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = conn.Write(data)
	return err
}
