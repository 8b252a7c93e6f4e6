package pkg

import (
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"Pitch_Board/internal/config"
)

type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: m.cfg.Host}
	return d.DialAndSend(msg)
}

// SendWelcome 注册成功后的欢迎邮件
func (m *SMTPMailer) SendWelcome(to, name string) error {
	return m.Send(to, "Welcome to Pitch Board", WelcomeHTML(name))
}

func WelcomeHTML(name string) string {
	return fmt.Sprintf(`<p>Hi <b>%s</b>,</p><p>your account is ready. Pitch your first idea and see how it ranks.</p>`, html.EscapeString(name))
}
