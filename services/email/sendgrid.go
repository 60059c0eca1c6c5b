package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/chuo/core"
)

const sendEndpoint = "/v3/mail/send"

// Delivery outcomes reported to an Observer.
const (
	OutcomeSent     = "sent"
	OutcomeRejected = "rejected" // 4xx from SendGrid, not retried
	OutcomeFailed   = "failed"   // transport errors and 5xx, after the last attempt
	OutcomeInvalid  = "invalid"  // the message did not render
	OutcomeSkipped  = "skipped"  // no recipient or nothing to send
)

// Observer is told the outcome of every message handed to SendMessages.
type Observer interface {
	ObserveEmail(template, outcome string)
}

type SendgridOption func(*sendgridService)

// WithObserver reports delivery outcomes to o.
func WithObserver(o Observer) SendgridOption {
	return func(svc *sendgridService) { svc.observer = o }
}

// WithRetries sets how many times a transient failure is retried, waiting backoff·attempt in between.
func WithRetries(n int, backoff time.Duration) SendgridOption {
	return func(svc *sendgridService) { svc.retries, svc.backoff = n, backoff }
}

type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
	observer   Observer
	retries    int
	backoff    time.Duration
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger, opts ...SendgridOption) *sendgridService {
	from := conf.DefaultFromEmail
	svc := &sendgridService{
		key:        conf.SendgridApiKey,
		host:       "https://api.sendgrid.com",
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		retries:    2,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

// deliver renders and sends msg, then reports what happened to it.
func (svc *sendgridService) deliver(msg *core.EmailMessage) string {
	outcome := svc.attempt(msg)
	if svc.observer != nil {
		template := msg.TemplateName
		if template == "" {
			template = "plain"
		}
		svc.observer.ObserveEmail(template, outcome)
	}
	return outcome
}

func (svc *sendgridService) attempt(msg *core.EmailMessage) string {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return OutcomeInvalid
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return OutcomeSkipped
	}

	body := sgmail.GetRequestBody(svc.prepare(*msg))
	for try := 0; ; try++ {
		code, err := svc.post(body)
		switch {
		case err == nil && code < http.StatusBadRequest:
			return OutcomeSent
		case err == nil && code < http.StatusInternalServerError && code != http.StatusTooManyRequests:
			svc.logger.Error(fmt.Sprintf("sending email %q rejected: status %d", msg.Subject, code))
			return OutcomeRejected
		case try >= svc.retries:
			if err == nil {
				err = fmt.Errorf("status %d", code)
			}
			svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
			return OutcomeFailed
		}
		time.Sleep(svc.backoff * time.Duration(try+1))
	}
}

func (svc *sendgridService) post(body []byte) (int, error) {
	req := sendgrid.GetRequest(svc.key, sendEndpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = body
	res, err := sendgrid.API(req)
	if err != nil {
		return 0, err
	}
	return res.StatusCode, nil
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgAddresses(msg.To)...)
	if len(msg.Cc) > 0 {
		p.AddCCs(sgAddresses(msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		p.AddBCCs(sgAddresses(msg.Bcc)...)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	// SendGrid rejects empty content values
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     a.Content.String(),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

func sgAddresses(addrs []mail.Address) []*sgmail.Email {
	out := make([]*sgmail.Email, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, sgmail.NewEmail(a.Name, a.Address))
	}
	return out
}
