package cli

import (
	"context"
	"fmt"
	"time"

	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

func (c *Cli) runContacts(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list":
		return c.listContacts(ctx)
	case "count":
		n, err := c.contacts.Count(ctx)
		if err != nil {
			return err
		}
		c.io.Printf("Contacts: %d\n", n)
		return nil
	case "add":
		return c.addContact(ctx)
	default:
		return fmt.Errorf("unknown contacts subcommand: %s. Use: list, count or add", sub)
	}
}

func (c *Cli) listContacts(ctx context.Context) error {
	contacts, err := c.contacts.List(ctx)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		c.io.Println("No contact requests.")
		return nil
	}

	c.io.Printf("=== Contact requests (%d) ===\n", len(contacts))
	for _, ct := range contacts {
		c.io.Println()
		c.io.Printf("#%d  %s  [%s]\n", ct.ID, ct.CreatedAt.Format(time.DateTime), ct.InquiryType)
		c.io.Printf("From:    %s <%s>\n", ct.FullName, ct.Email)
		if ct.Company != "" {
			c.io.Printf("Company: %s\n", ct.Company)
		}
		if ct.Phone != "" {
			c.io.Printf("Phone:   %s\n", ct.Phone)
		}
		c.io.Printf("Subject: %s\n", ct.Subject)
		c.io.Printf("%s\n", ct.Message)
	}
	return nil
}

func (c *Cli) addContact(ctx context.Context) error {
	c.io.Println("=== New contact request ===")

	var req pkgapi.ContactRequest
	fields := []struct {
		dst    *string
		prompt string
	}{
		{&req.FullName, "Full name: "},
		{&req.Email, "Email: "},
		{&req.Phone, "Phone (optional): "},
		{&req.Company, "Company (optional): "},
		{&req.InquiryType, "Inquiry type: "},
		{&req.Subject, "Subject: "},
		{&req.Message, "Message: "},
	}
	for _, f := range fields {
		v, err := c.io.ReadInput(f.prompt)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		*f.dst = v
	}

	created, err := c.contacts.Create(ctx, req)
	if err != nil {
		return err
	}
	c.io.Printf("✓ Contact request #%d saved.\n", created.ID)
	return nil
}
