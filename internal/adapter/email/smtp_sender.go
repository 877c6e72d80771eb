package email

import (
	"fmt"

	"github.com/sd-owens/YelpCamp/internal/config"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Sender interface {
	SendEmail(to []string, subject, body string) error
}

type smtpSender struct {
	cfg    *config.SMTPConfig
	dialer *gomail.Dialer
	logger *logger.Logger
}

func NewSMTPSender(cfg *config.SMTPConfig, log *logger.Logger) Sender {
	return &smtpSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: log.Named("SMTPSender"),
	}
}

func (s *smtpSender) SendEmail(to []string, subject, body string) error {
	if s.cfg.Host == "" || s.cfg.Username == "" || s.cfg.Password == "" || s.cfg.SenderEmail == "" {
		s.logger.Error("SMTP configuration is incomplete. Email not sent.",
			zap.String("host", s.cfg.Host),
			zap.String("username", s.cfg.Username),
			zap.Bool("password_set", s.cfg.Password != ""),
			zap.String("sender", s.cfg.SenderEmail))
		return fmt.Errorf("SMTP configuration is incomplete")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients provided for email")
	}

	m := gomail.NewMessage()
	if s.cfg.SenderName != "" {
		m.SetHeader("From", m.FormatAddress(s.cfg.SenderEmail, s.cfg.SenderName))
	} else {
		m.SetHeader("From", s.cfg.SenderEmail)
	}
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("Failed to send email", zap.Error(err), zap.Strings("to", to), zap.String("subject", subject))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Email sent successfully", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}
