package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/client/chat"
	"github.com/iudanet/chatdesk/internal/models"
)

// runChat продолжает активный тред: одно сообщение из аргументов или
// интерактивный цикл
func (c *Cli) runChat(ctx context.Context, args []string) error {
	hist, err := c.session.Open(ctx)
	if err != nil {
		return err
	}
	c.printHistory(hist)
	if errors.Is(hist.Err, api.ErrAuthExpired) {
		return hist.Err
	}

	if len(args) > 0 {
		return c.send(ctx, strings.Join(args, " "))
	}

	for {
		line, err := c.io.ReadInput("> ")
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/new":
			err = c.runNew(ctx, nil)
		case line == "/threads":
			err = c.runThreads(ctx, nil)
		case strings.HasPrefix(line, "/open"):
			err = c.runHistory(ctx, strings.Fields(strings.TrimPrefix(line, "/open")))
		default:
			err = c.send(ctx, line)
		}

		if errors.Is(err, api.ErrAuthExpired) {
			return err
		}
		if err != nil {
			c.io.Printf("Error: %v\n", err)
		}
	}
}

// send отправляет сообщение и ждет конца ответа; текст рисует onChatEvent
func (c *Cli) send(ctx context.Context, text string) error {
	ex, err := c.session.Send(ctx, text)
	if err != nil {
		return err
	}
	select {
	case <-ex.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	_, err = ex.Wait()
	return err
}

func (c *Cli) runThreads(ctx context.Context, _ []string) error {
	threads := c.threads.List(ctx)
	if len(threads) == 0 {
		c.io.Println("No threads yet.")
		return nil
	}

	c.io.Printf("=== Threads (%d) ===\n", len(threads))
	for _, t := range threads {
		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		c.io.Printf("%s  %s\n", t.ID, truncate(title, 60))
	}
	return nil
}

func (c *Cli) runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.io)
	limit := fs.Int("limit", c.historyLimit, "Messages per page")
	offset := fs.Int("offset", 0, "Messages to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: chatdesk history <thread-id> [--limit N] [--offset N]")
	}

	hist, err := c.session.LoadHistory(ctx, fs.Arg(0), chat.Page{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}
	c.printHistory(hist)
	if errors.Is(hist.Err, api.ErrAuthExpired) {
		return hist.Err
	}
	return nil
}

func (c *Cli) runNew(ctx context.Context, _ []string) error {
	id, err := c.session.NewThread(ctx)
	if err != nil {
		return err
	}
	c.io.Printf("✓ New thread: %s\n", id)
	c.io.Printf("bot: %s\n", chat.NewChatText)
	return nil
}

func (c *Cli) printHistory(h *chat.History) {
	c.io.Printf("=== Thread %s ===\n", h.ThreadID)
	if h.Cached {
		c.io.Println("(server unavailable: showing the last saved copy)")
	}
	for _, m := range h.Messages {
		c.io.Printf("%s: %s\n", speaker(m.Sender), m.Text)
	}
}

// onChatEvent рисует ответ бота по мере прихода чанков.
// Накопленный текст растет только целыми рунами, поэтому срез по printed безопасен.
func (c *Cli) onChatEvent(ev chat.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case chat.EventMessageAppended:
		if ev.Message.Sender == models.SenderBot {
			c.printed = 0
			c.io.Printf("%s: ", speaker(models.SenderBot))
		}
	case chat.EventMessageUpdated:
		text := ev.Message.Text
		if len(text) >= c.printed {
			c.io.Printf("%s", text[c.printed:])
			c.printed = len(text)
		}
	case chat.EventStreamFinished:
		c.io.Println()
	case chat.EventStreamFailed:
		if ev.Index >= 0 {
			c.io.Println(" [interrupted]")
		} else {
			c.io.Println()
		}
	case chat.EventThreadsUpdated:
		c.logger.Debug("thread list refreshed", "count", len(ev.Threads))
	}
}

func speaker(s models.Sender) string {
	if s == models.SenderUser {
		return "you"
	}
	return "bot"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
