package sender

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/retreivo/retreivo/internal/notification/domain"
)

// SMTPSender 基于标准 SMTP 协议的邮件发送。
// host 为空时进入演练模式，只记录日志不真正发送。
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPSender(host, port, username, password, from string) domain.Sender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, target string, subject string, content string) error {
	slog.InfoContext(ctx, "sending email", "target", target, "subject", subject)

	msg := []byte("To: " + target + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		content + "\r\n")

	if s.host == "" {
		slog.DebugContext(ctx, "SMTP dry run", "msg", string(msg))
		return nil
	}

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, auth, s.from, []string{target}, msg)
}
