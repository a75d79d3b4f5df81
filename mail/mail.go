// Package mail delivers password-reset links. The engine depends only on
// [Sender]; the SMTP implementation lives behind it so tests and local
// runs can substitute [LogSender].
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"strings"
)

// Sender dispatches a password-reset message to an email address. The
// token is embedded in a frontend link; implementations must not log it.
type Sender interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// ResetLink renders the frontend reset URL carrying the token.
func ResetLink(frontendURL, token string) string {
	base := strings.TrimRight(frontendURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Addr        string // host:port
	From        string
	Username    string
	Password    string
	FrontendURL string
}

// SMTPSender sends reset mail through a plain SMTP relay.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender validates cfg and returns a sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("mail: SMTP address is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail: from address is required")
	}
	if cfg.FrontendURL == "" {
		return nil, fmt.Errorf("mail: frontend URL is required")
	}
	return &SMTPSender{config: cfg}, nil
}

// SendPasswordReset delivers the reset link synchronously. A delivery
// failure is returned to the caller rather than swallowed, so the
// forgot-password operation fails visibly. The context deadline bounds
// the whole SMTP conversation, not just the dial; a wedged relay
// surfaces as a timeout instead of a hung request.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, email, token string) error {
	link := ResetLink(s.config.FrontendURL, token)
	msg := buildResetMessage(s.config.From, email, link)

	if err := s.send(ctx, email, msg); err != nil {
		return fmt.Errorf("mail: send password reset: %w", err)
	}
	return nil
}

// send runs the SMTP session by hand so the context deadline can be
// applied to the connection. smtp.SendMail offers no way to bound the
// reads and writes after the dial.
func (s *SMTPSender) send(ctx context.Context, to string, msg []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.config.Addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}

	host := s.config.Addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildResetMessage(from, to, link string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Password Reset Request\r\n")
	b.WriteString("\r\n")
	b.WriteString("Click the link to reset your password: " + link + "\r\n")
	return []byte(b.String())
}

// LogSender records delivery attempts to a logger instead of sending
// mail. Intended for development and tests; it logs the recipient but
// never the token.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendPasswordReset(ctx context.Context, email, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "password reset dispatched", "email", email)
	}
	return nil
}
