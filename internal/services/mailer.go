package services

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/flowmotion-backend/internal/config"
	"github.com/matcornic/hermes/v2"
	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

const buttonColor = "#A020F0"

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer renders and delivers the account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendPasswordReset(ctx context.Context, to, name, link string) error
	SendContact(ctx context.Context, to string, c ContactMessage) error
}

// ContactMessage is a storefront enquiry forwarded to the shop owner.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// Transport delivers a rendered message.
type Transport interface {
	Deliver(ctx context.Context, m Message) error
}

// TemplateMailer renders emails with hermes and hands them to a Transport.
type TemplateMailer struct {
	h         hermes.Hermes
	transport Transport
}

func NewTemplateMailer(productName, productLink string, transport Transport) *TemplateMailer {
	return &TemplateMailer{
		h: hermes.Hermes{
			Product: hermes.Product{
				Name:      productName,
				Link:      productLink,
				Copyright: fmt.Sprintf("Copyright © %s. All rights reserved.", productName),
			},
		},
		transport: transport,
	}
}

func (m *TemplateMailer) render(to, subject string, email hermes.Email) (Message, error) {
	html, err := m.h.GenerateHTML(email)
	if err != nil {
		return Message{}, errors.Wrap(err, "render html")
	}
	text, err := m.h.GeneratePlainText(email)
	if err != nil {
		return Message{}, errors.Wrap(err, "render text")
	}
	return Message{To: to, Subject: subject, HTML: html, Text: text}, nil
}

func (m *TemplateMailer) send(ctx context.Context, to, subject string, email hermes.Email) error {
	msg, err := m.render(to, subject, email)
	if err != nil {
		return err
	}
	return m.transport.Deliver(ctx, msg)
}

func (m *TemplateMailer) SendVerification(ctx context.Context, to, name, link string) error {
	return m.send(ctx, to, "Verify your email", hermes.Email{Body: hermes.Body{
		Name:   name,
		Intros: []string{fmt.Sprintf("Welcome to %s! Please confirm this is your email address.", m.h.Product.Name)},
		Actions: []hermes.Action{{
			Instructions: "Click the button below to verify your email. The link is valid for 20 minutes.",
			Button:       hermes.Button{Color: buttonColor, Text: "Verify email", Link: link},
		}},
		Outros: []string{"If you did not create an account, no further action is required."},
	}})
}

func (m *TemplateMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	return m.send(ctx, to, "Reset your password", hermes.Email{Body: hermes.Body{
		Name:   name,
		Intros: []string{"You have received this email because a password reset request for your account was received."},
		Actions: []hermes.Action{{
			Instructions: "Click the button below to reset your password. The link is valid for 15 minutes.",
			Button:       hermes.Button{Color: buttonColor, Text: "Reset your password", Link: link},
		}},
		Outros: []string{"If you did not request a password reset, no further action is required on your part."},
	}})
}

func (m *TemplateMailer) SendContact(ctx context.Context, to string, c ContactMessage) error {
	return m.send(ctx, to, "New enquiry from "+c.Name, hermes.Email{Body: hermes.Body{
		Name:   "there",
		Intros: []string{"A customer sent a message through the storefront contact form."},
		Dictionary: []hermes.Entry{
			{Key: "Name", Value: c.Name},
			{Key: "Email", Value: c.Email},
			{Key: "Phone", Value: c.Phone},
			{Key: "Message", Value: c.Message},
		},
	}})
}

// SMTPTransport delivers messages through an authenticated SMTP relay.
type SMTPTransport struct {
	host     string
	port     int
	from     string
	username string
	password string
}

func NewSMTPTransport(cfg *config.Config) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.MailUser,
		username: cfg.MailUser,
		password: cfg.MailPassword,
	}
}

func (t *SMTPTransport) Deliver(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.From(t.from); err != nil {
		return errors.Wrap(err, "set sender")
	}
	if err := msg.To(m.To); err != nil {
		return errors.Wrap(err, "set recipient")
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)

	client, err := mail.NewClient(t.host,
		mail.WithPort(t.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.username),
		mail.WithPassword(t.password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return errors.Wrap(err, "create smtp client")
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}
