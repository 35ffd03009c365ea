package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// Mailer delivers submission notices over SMTP.
type Mailer struct {
	dialer    *gomail.Dialer
	from      string
	approvers []string
}

func NewMailer(host string, port int, username, password, from string, approverList string) *Mailer {
	var approvers []string
	for _, addr := range strings.Split(approverList, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			approvers = append(approvers, addr)
		}
	}
	return &Mailer{
		dialer:    gomail.NewDialer(host, port, username, password),
		from:      from,
		approvers: approvers,
	}
}

// NotifySubmission emails the approver list about a committed submission.
func (m *Mailer) NotifySubmission(_ context.Context, n ports.SubmissionNotice) error {
	if len(m.approvers) == 0 {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.approvers...)
	msg.SetHeader("Subject", fmt.Sprintf("New purchase request %s", n.PRNumber))
	msg.SetBody("text/plain", fmt.Sprintf(
		"%s (%s) submitted %s for %s.\n\nDescription: %s\nAmount: %.2f %s\n",
		n.RequestorName, n.RequestorEmail, n.PRNumber, n.Site, n.Description, n.Amount, n.Currency,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send submission notice: %w", err)
	}
	return nil
}
