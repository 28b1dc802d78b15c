package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/iudanet/chatdesk/internal/models"
)

func (c *Cli) runUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(c.io)
	watch := fs.Bool("watch", false, "Follow the build after upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: chatdesk upload <file> [--watch]")
	}

	c.io.Printf("Uploading %s...\n", fs.Arg(0))
	file, err := c.uploader.UploadFile(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	c.io.Println("✓ Upload successful!")
	c.io.Printf("File ID: %s\n", file.ID)
	if file.Message != "" {
		c.io.Println(file.Message)
	}

	if !*watch {
		c.io.Println("Run 'chatdesk kb-watch' to follow indexing progress.")
		return nil
	}
	// после загрузки поллер терпит idle, пока задача не стартует
	return c.watch(ctx)
}

// runKBStatus один запрос статуса; клиент не считает задачу idle только
// потому, что сам только что запустился
func (c *Cli) runKBStatus(ctx context.Context, _ []string) error {
	_, err := c.poller.FetchOnce(ctx)
	return err
}

func (c *Cli) runKBWatch(ctx context.Context, _ []string) error {
	st, err := c.poller.FetchOnce(ctx)
	if err != nil {
		return err
	}
	if st.State != models.JobProcessing {
		return nil
	}
	return c.watch(ctx)
}

func (c *Cli) runKBCancel(ctx context.Context, _ []string) error {
	if err := c.poller.Cancel(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Cancellation requested.")
	return nil
}

// watch запускает цикл опроса и ждет его завершения или отмены ctx
func (c *Cli) watch(ctx context.Context) error {
	c.poller.StartPolling(ctx, c.pollInterval)
	select {
	case <-c.poller.Done():
	case <-ctx.Done():
		c.poller.Close()
		return nil
	}

	if st := c.poller.Status(); st.State == models.JobFailed {
		return errors.New("knowledge base build failed")
	}
	return nil
}

// onJobUpdate печатает каждый принятый статус
func (c *Cli) onJobUpdate(st models.JobStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.io.Printf("Knowledge base: %s\n", st)
}
