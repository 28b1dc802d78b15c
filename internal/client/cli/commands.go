package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/chatdesk/internal/client/api"
)

// ErrUnknownCommand returned for a command Run does not know
var ErrUnknownCommand = errors.New("unknown command")

// Run executes one command. args excludes the command name.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	var err error
	switch command {
	case "login":
		err = c.runLogin(ctx, args)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "chat":
		err = c.authenticated(ctx, args, c.runChat)
	case "threads":
		err = c.authenticated(ctx, args, c.runThreads)
	case "history":
		err = c.authenticated(ctx, args, c.runHistory)
	case "new":
		err = c.authenticated(ctx, args, c.runNew)
	case "upload":
		err = c.authenticated(ctx, args, c.runUpload)
	case "kb-status":
		err = c.authenticated(ctx, args, c.runKBStatus)
	case "kb-watch":
		err = c.authenticated(ctx, args, c.runKBWatch)
	case "kb-cancel":
		err = c.authenticated(ctx, args, c.runKBCancel)
	case "contacts":
		err = c.authenticated(ctx, args, c.runContacts)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	return err
}

// authenticated запускает команду, требующую сессии; AuthExpired приводит к
// локальному выходу
func (c *Cli) authenticated(ctx context.Context, args []string, run func(context.Context, []string) error) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	err := run(ctx, args)
	if errors.Is(err, api.ErrAuthExpired) {
		return c.handleAuthExpired(ctx, err)
	}
	return err
}
