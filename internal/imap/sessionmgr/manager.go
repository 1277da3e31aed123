package sessionmgr

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/aaronromeo/inboxdigest/internal/imap/base"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

const defaultDialTimeout = 30 * time.Second

var (
	// ErrConnection marks failures to dial or authenticate against the store.
	ErrConnection = errors.New("imap connection failed")
	// ErrFolder marks failures to select the requested folder.
	ErrFolder = errors.New("imap folder selection failed")
)

type Option func(*IMAPConnector)

type Session interface {
	Connect(ctx context.Context) error
	SelectFolder(ctx context.Context, name string) error
	Close() error
}

type IMAPConnector struct {
	Addr        string
	Username    string
	Password    string
	Secure      bool
	TLSConfig   *tls.Config
	DialTimeout time.Duration

	logger *slog.Logger

	base.State
}

func WithAddr(a string) Option {
	return func(c *IMAPConnector) {
		c.Addr = a
	}
}

func WithCreds(username string, password string) Option {
	return func(c *IMAPConnector) {
		c.Username = username
		c.Password = password
	}
}

// WithSecure selects implicit TLS (true) or a plaintext connection (false).
func WithSecure(secure bool) Option {
	return func(c *IMAPConnector) {
		c.Secure = secure
	}
}

func WithTLSConfig(config *tls.Config) Option {
	return func(state *IMAPConnector) {
		state.TLSConfig = config
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(c *IMAPConnector) {
		if timeout > 0 {
			c.DialTimeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *IMAPConnector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewServerConnector(opts ...Option) *IMAPConnector {
	c := &IMAPConnector{
		Secure:      true,
		DialTimeout: defaultDialTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *IMAPConnector) IMAPClient() *giimapclient.Client {
	return c.Client
}

// Connect dials the store and logs in. A failed login tears the connection down
// before returning.
func (c *IMAPConnector) Connect(ctx context.Context) error {
	if err := validateDeps(c); err != nil {
		return err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, c.Addr, err)
	}

	client := giimapclient.New(conn, nil)
	if err := client.Login(c.Username, c.Password).Wait(); err != nil {
		_ = client.Close()
		return fmt.Errorf("%w: login %s: %v", ErrConnection, c.Username, err)
	}

	c.logger.Debug("imap session opened", "addr", c.Addr, "secure", c.Secure)
	c.Client = client
	return nil
}

func (c *IMAPConnector) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.DialTimeout}
	if !c.Secure {
		return dialer.DialContext(ctx, "tcp", c.Addr)
	}

	tlsConfig := &tls.Config{}
	if c.TLSConfig != nil {
		tlsConfig = c.TLSConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		if host, _, err := net.SplitHostPort(c.Addr); err == nil {
			tlsConfig.ServerName = host
		}
	}
	tlsDialer := &tls.Dialer{NetDialer: dialer, Config: tlsConfig}
	return tlsDialer.DialContext(ctx, "tcp", c.Addr)
}

// SelectFolder selects the mailbox that later searches and fetches operate on.
func (c *IMAPConnector) SelectFolder(ctx context.Context, name string) error {
	if c.Client == nil {
		return errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: mailbox is required", ErrFolder)
	}
	data, err := c.Client.Select(name, nil).Wait()
	if err != nil {
		return fmt.Errorf("%w: select %s: %v", ErrFolder, name, err)
	}
	c.logger.Debug("imap folder selected", "folder", name, "messages", data.NumMessages)
	return nil
}

// Close logs out and clears the connection. Calling it again is a no-op.
func (c *IMAPConnector) Close() error {
	if c.Client == nil {
		return nil
	}
	client := c.Client
	c.Client = nil
	err := client.Logout().Wait()
	_ = client.Close()
	return err
}

func validateDeps(state *IMAPConnector) error {
	if strings.TrimSpace(state.Addr) == "" {
		return fmt.Errorf("%w: IMAP address is required", ErrConnection)
	}
	if strings.TrimSpace(state.Username) == "" || strings.TrimSpace(state.Password) == "" {
		return fmt.Errorf("%w: IMAP credentials are required", ErrConnection)
	}

	return nil
}
