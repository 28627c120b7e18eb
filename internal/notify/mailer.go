package notify

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"taskhub/internal/model"
)

// Mailer delivers queued notifications over SMTP.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewMailer(host string, port int, username, password, from, fromName string) *Mailer {
	return &Mailer{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

func (m *Mailer) Send(n model.Notification) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", n.Email)
	msg.SetHeader("Subject", n.Subject)
	msg.SetBody("text/plain", n.Body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send notification mail failed: %w", err)
	}
	return nil
}
