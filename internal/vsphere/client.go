// Package vsphere implements tracker.DiskAreaQuery against a vCenter server.
package vsphere

import (
	"context"
	"net/url"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
	"go.uber.org/zap"

	"github.com/joshuapare/cbtkit/pkg/types"
)

// Config holds vCenter connection settings.
type Config struct {
	Host     string
	User     string
	Password string
	Insecure bool // skip TLS certificate verification
}

// Validate reports missing connection settings as ErrKindConfig.
func (c Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "VCENTER_HOST")
	}
	if c.User == "" {
		missing = append(missing, "VCENTER_USER")
	}
	if c.Password == "" {
		missing = append(missing, "VCENTER_PASS")
	}
	if len(missing) > 0 {
		return types.Errorf(types.ErrKindConfig, "missing vCenter settings: %v", missing)
	}
	return nil
}

// Client is a logged-in vCenter session.
type Client struct {
	vc     *vim25.Client
	logout func(context.Context) error
	logger *zap.Logger
}

// Opt configures a Client.
type Opt func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
	}
}

// Dial logs in to the vCenter in cfg.
func Dial(ctx context.Context, cfg Config, opts ...Opt) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u, err := soap.ParseURL(cfg.Host)
	if err != nil {
		return nil, types.Wrap(types.ErrKindConfig, err, "parse vCenter host")
	}
	u.User = url.UserPassword(cfg.User, cfg.Password)

	gc, err := govmomi.NewClient(ctx, u, cfg.Insecure)
	if err != nil {
		return nil, types.Wrap(types.ErrKindQuery, err, "connect to vCenter "+u.Host)
	}
	c := newClient(gc.Client, gc.Logout, opts...)
	c.logger.Debug("connected to vCenter", zap.String("host", u.Host), zap.String("user", cfg.User))
	return c, nil
}

func newClient(vc *vim25.Client, logout func(context.Context) error, opts ...Opt) *Client {
	c := &Client{vc: vc, logout: logout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close ends the session.
func (c *Client) Close(ctx context.Context) error {
	if c.logout == nil {
		return nil
	}
	if err := c.logout(ctx); err != nil {
		return types.Wrap(types.ErrKindQuery, err, "log out of vCenter")
	}
	return nil
}
