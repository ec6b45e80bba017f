// Package mail delivers account lifecycle notifications over SMTP.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/maalej-ala/stage2-auth/internal/core/ports"
)

// ErrUnknownKind is returned for notifications without a template.
var ErrUnknownKind = errors.New("mail: unknown notification kind")

// Config holds SMTP connection and content settings.
type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	LoginURL     string
	SupportEmail string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender implements ports.Notifier on top of net/smtp.
type Sender struct {
	cfg  Config
	addr string
	auth smtp.Auth
	send sendFunc
}

// NewSender returns a Sender for cfg. PLAIN authentication is used when a
// username is configured.
func NewSender(cfg Config) *Sender {
	s := &Sender{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		send: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

// Send renders n and hands it to the SMTP server. net/smtp has no context
// support, so cancellation abandons the in-flight exchange rather than
// aborting it.
func (s *Sender) Send(ctx context.Context, n ports.Notification) error {
	msg, err := s.compose(n)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.send(s.addr, s.auth, s.cfg.From, []string{n.Email}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: send %s: %w", n.Kind, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sender) compose(n ports.Notification) ([]byte, error) {
	tpl, ok := templates[n.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}

	var body bytes.Buffer
	err := tpl.body.Execute(&body, message{
		FirstName:    n.FirstName,
		LoginURL:     s.cfg.LoginURL,
		SupportEmail: s.cfg.SupportEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("mail: render %s: %w", n.Kind, err)
	}

	var msg bytes.Buffer
	writeHeader(&msg, "From", s.cfg.From)
	writeHeader(&msg, "To", n.Email)
	writeHeader(&msg, "Subject", mime.QEncoding.Encode("utf-8", tpl.subject))
	writeHeader(&msg, "MIME-Version", "1.0")
	writeHeader(&msg, "Content-Type", `text/html; charset="UTF-8"`)
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// writeHeader strips CR/LF from value so user-controlled input cannot
// inject additional headers.
func writeHeader(buf *bytes.Buffer, key, value string) {
	value = strings.NewReplacer("\r", "", "\n", "").Replace(value)
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}
