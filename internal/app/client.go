package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/outbox"
	"github.com/kingchat/kingchat/internal/status"
	intsync "github.com/kingchat/kingchat/internal/sync"
)

// Client is the assembled client handed to the TUI and the CLI.
type Client struct {
	Session  string
	Store    *chat.Store
	Sender   *outbox.Sender
	Engine   *intsync.Engine
	Status   *status.Machine
	Bus      *bus.Bus
	Logger   *zap.Logger
	Backends Backends
}

// NewClient bundles the provided components.
func NewClient(p Params, st *chat.Store, sender *outbox.Sender, engine *intsync.Engine, m *status.Machine, b *bus.Bus, logger *zap.Logger, be Backends) *Client {
	return &Client{
		Session:  p.SessionName,
		Store:    st,
		Sender:   sender,
		Engine:   engine,
		Status:   m,
		Bus:      b,
		Logger:   logger,
		Backends: be,
	}
}

// Offline reports whether the local backend is in use.
func (c *Client) Offline() bool {
	return c.Backends.Offline
}

// Resume loads the stored session, if any.
func (c *Client) Resume(ctx context.Context) error {
	return c.Engine.Resume(ctx)
}

// Login performs the demo login against the selected backend.
func (c *Client) Login(ctx context.Context) (chat.User, error) {
	return c.Engine.Login(ctx, c.Backends.Auth)
}

// Logout forgets the session locally and drops the bearer token.
func (c *Client) Logout() error {
	if c.Backends.Remote != nil {
		c.Backends.Remote.SetToken("")
	}
	c.Sender.Wait()
	c.Sender.Reset()
	return c.Engine.Logout()
}
