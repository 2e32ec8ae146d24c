package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// Swappable for tests.
var (
	smtpSendMail    = smtp.SendMail
	smtpSendMailSSL = sendMailImplicitTLS
)

// SMTPSender delivers messages over SMTP using the currently active
// configuration. Port 465 uses implicit TLS; anything else goes through
// smtp.SendMail, which negotiates STARTTLS when the server offers it.
type SMTPSender struct {
	configs ConfigSource
}

func NewSMTPSender(configs ConfigSource) *SMTPSender {
	return &SMTPSender{configs: configs}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := s.configs.Active()
	if err != nil {
		return err
	}

	body, err := BuildMessage(cfg.FromAddress, msg)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if cfg.UseSSL {
		return smtpSendMailSSL(addr, cfg.Host, auth, cfg.FromAddress, msg.To, body)
	}
	return smtpSendMail(addr, auth, cfg.FromAddress, msg.To, body)
}

// sendMailImplicitTLS performs the SMTP transaction over a TLS connection
// established up front, as required on port 465.
func sendMailImplicitTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s failed: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}
