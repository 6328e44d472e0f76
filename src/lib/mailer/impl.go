package mailer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"ticketing/src/lib"
	"ticketing/src/services"

	"github.com/wneessen/go-mail"
)

// Sender abstracts the SMTP client so tests can capture messages.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier delivers confirmations and refund notices as plain-text mail.
type SMTPNotifier struct {
	sender   Sender
	from     string
	fromName string
}

func NewSMTPNotifier(sender Sender, from string) *SMTPNotifier {
	return &SMTPNotifier{sender: sender, from: from, fromName: "Tickets"}
}

func (n *SMTPNotifier) TicketConfirmation(ctx context.Context, c services.TicketConfirmation) error {
	if c.Email == "" {
		return fmt.Errorf("no email address for order %s", c.OrderNumber)
	}
	return n.send(ctx, &lib.SendMailInput{
		From:     n.from,
		FromName: n.fromName,
		To:       []string{c.Email},
		Subject:  fmt.Sprintf("Your tickets for order %s", c.OrderNumber),
		Body:     ConfirmationBody(c),
	})
}

func (n *SMTPNotifier) RefundCompleted(ctx context.Context, r services.RefundNotice) error {
	if r.User.Email == "" {
		return fmt.Errorf("no email address for user %d", r.User.ID)
	}
	return n.send(ctx, &lib.SendMailInput{
		From:     n.from,
		FromName: n.fromName,
		To:       []string{r.User.Email},
		Subject:  "Your refund has been processed",
		Body:     RefundBody(r),
	})
}

func (n *SMTPNotifier) send(ctx context.Context, in *lib.SendMailInput) error {
	msg, err := lib.NewMessage(in)
	if err != nil {
		return err
	}
	return n.sender.DialAndSendWithContext(ctx, msg)
}

func ConfirmationBody(c services.TicketConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order %s.\n\n", displayName(c.Name), c.OrderNumber)
	for _, t := range c.Tickets {
		fmt.Fprintf(&b, "  Ticket #%d  %s\n", t.ID, t.Price.StringFixed(2))
	}
	b.WriteString("\nShow the QR code in your account at the entrance.\n")
	return b.String()
}

func RefundBody(r services.RefundNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(r.User.Name))
	event := "your event"
	if r.Event != nil && r.Event.Title != "" {
		event = r.Event.Title
	}
	fmt.Fprintf(&b, "Your refund of %s for %s is complete.\n", r.Amount.StringFixed(2), event)
	if r.Purchase != nil {
		fmt.Fprintf(&b, "Order: %s\n", r.Purchase.OrderRef)
	}
	fmt.Fprintf(&b, "Original payment: %s. The amount has been added to your store credit.\n", r.PaymentMethod)
	return b.String()
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

// LogNotifier writes notifications to the log. Used when SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) TicketConfirmation(_ context.Context, c services.TicketConfirmation) error {
	log.Printf("[mailer] confirmation to %s for order %s (%d tickets)\n", c.Email, c.OrderNumber, len(c.Tickets))
	return nil
}

func (LogNotifier) RefundCompleted(_ context.Context, r services.RefundNotice) error {
	log.Printf("[mailer] refund notice to %s for %s\n", r.User.Email, r.Amount.StringFixed(2))
	return nil
}
