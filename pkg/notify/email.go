package notify

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
)

type EmailService struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASS"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

func (s *EmailService) SendOverdueNotice(to, memberName, bookTitle, dueDate string) error {
	if s.host == "" {
		slog.Warn("SMTP not configured, skipping email notice", "to", to)
		return nil
	}

	subject := "Subject: 📚 Overdue book reminder: " + bookTitle + "\r\n"
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
		<h3>Dear %s,</h3>
		<p>The book <strong>%s</strong> you borrowed was due on <strong>%s</strong>.</p>
		<p>Please return it to the library as soon as possible to avoid further late fees.</p>
		<hr>
		<p>Sent automatically by UniLib</p>
	`, memberName, bookTitle, dueDate)

	msg := []byte(subject + mime + body)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg)
	if err != nil {
		slog.Error("failed to send email", "error", err)
		return err
	}

	slog.Info("overdue notice sent", "to", to, "book", bookTitle)
	return nil
}
