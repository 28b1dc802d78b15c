package cli

import (
	"context"
	"time"

	"github.com/iudanet/chatdesk/internal/client/auth"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	identity, ok := c.store.Identity()
	if !ok {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'chatdesk login' to authenticate.")
		return nil
	}

	c.io.Println("Status: Authenticated")
	c.io.Printf("Email: %s\n", identity.Email)
	if identity.Name != "" {
		c.io.Printf("Name: %s\n", identity.Name)
	}
	if identity.Role != "" {
		c.io.Printf("Role: %s\n", identity.Role)
	}

	token, _ := c.store.CurrentAccessToken()
	expiresAt, ok := auth.Expiry(token)
	if !ok {
		return nil
	}
	c.io.Printf("Access token expires: %s\n", expiresAt.Format(time.RFC3339))
	if remaining := time.Until(expiresAt); remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		// refresh произойдет автоматически при следующем запросе
		c.io.Println("Access token has expired; it will be refreshed on the next request.")
	}
	return nil
}
