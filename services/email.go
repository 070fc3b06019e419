package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"agencyops/backend/config"

	"github.com/yuin/goldmark"
)

const resendEndpoint = "https://api.resend.com/emails"

// Message is one outgoing HTML email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers email. A returned error means the message was not sent.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer selects the delivery backend named by cfg.Provider
func NewMailer(cfg config.EmailConfig) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("email provider resend requires an API key")
		}
		return &ResendMailer{APIKey: cfg.ResendAPIKey, From: cfg.From, Endpoint: resendEndpoint, Client: &http.Client{Timeout: 10 * time.Second}}, nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("email provider smtp requires a host")
		}
		return &SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUsername, Password: cfg.SMTPPassword, From: cfg.From}, nil
	case "", "log":
		return LogMailer{}, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendMailer sends through the Resend HTTP API
type ResendMailer struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    m.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

// SMTPMailer sends through a plain SMTP relay
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := m.Host + ":" + strconv.Itoa(m.Port)

	raw := "From: " + m.From + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		msg.HTML

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if err := smtp.SendMail(addr, auth, m.From, []string{msg.To}, []byte(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("Email to %s: %s\n%s", msg.To, msg.Subject, msg.HTML)
	return nil
}

var accountEmailTemplate = template.Must(template.New("account").Parse(`# Welcome, {{.FirstName}}

An account has been created for you.

- **Email:** {{.Email}}
- **Temporary password:** ` + "`{{.Password}}`" + `

Sign in and change your password as soon as possible.
`))

// accountEmail renders the provisioning message for a new employee
func accountEmail(name, email, password string) (Message, error) {
	var md bytes.Buffer
	err := accountEmailTemplate.Execute(&md, map[string]string{
		"FirstName": firstName(name),
		"Email":     email,
		"Password":  password,
	})
	if err != nil {
		return Message{}, fmt.Errorf("error rendering account email: %w", err)
	}

	var html bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &html); err != nil {
		return Message{}, fmt.Errorf("error converting account email: %w", err)
	}

	return Message{To: email, Subject: "Your account has been created", HTML: html.String()}, nil
}

// firstName returns the first word of name capitalized, or "there"
func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	first := fields[0]
	r, size := utf8.DecodeRuneInString(first)
	return string(unicode.ToUpper(r)) + strings.ToLower(first[size:])
}
