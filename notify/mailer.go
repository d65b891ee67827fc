package notify

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/meinhoongagan/tutor-sessions/config"
	"github.com/meinhoongagan/tutor-sessions/store"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer emails users found in the directory.
type Mailer struct {
	users  store.Users
	from   string
	dialer sender
}

func NewMailer(conf *config.Config, users store.Users) *Mailer {
	return &Mailer{
		users:  users,
		from:   conf.EmailUser,
		dialer: gomail.NewDialer(conf.SMTPHost, conf.SMTPPort, conf.EmailUser, conf.EmailPass),
	}
}

func (m *Mailer) Notify(ctx context.Context, userID uint, msg Message) error {
	u, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return errors.Wrapf(err, "notify: look up user %d", userID)
	}
	if u.Email == "" {
		return errors.Errorf("notify: user %d has no email", userID)
	}

	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", u.Email)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/html", msg.Body)

	return errors.Wrap(m.dialer.DialAndSend(mail), "notify: send email")
}
