package email

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gopkg.in/gomail.v2"
)

var (
	ErrDisabled       = errors.New("email: delivery is disabled")
	ErrInvalidMessage = errors.New("email: invalid message")
	ErrSend           = errors.New("email: smtp delivery failed")
)

// Message is one outgoing mail. At least one of TextBody and HTMLBody must be
// set; with both, the HTML part is sent as the preferred alternative.
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
	// Headers are copied verbatim, e.g. X-Mindcare-Event for filtering.
	Headers map[string]string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}

func buildMessage(from string, m Message) (*gomail.Message, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, invalid("from is required")
	}
	to, err := recipients(m.To)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		return nil, invalid("subject is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	for k, v := range m.Headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			msg.SetHeader(k, v)
		}
	}

	text, html := strings.TrimSpace(m.TextBody) != "", strings.TrimSpace(m.HTMLBody) != ""
	switch {
	case text && html:
		msg.SetBody("text/plain", m.TextBody)
		msg.AddAlternative("text/html", m.HTMLBody)
	case html:
		msg.SetBody("text/html", m.HTMLBody)
	case text:
		msg.SetBody("text/plain", m.TextBody)
	default:
		return nil, invalid("a text or html body is required")
	}
	return msg, nil
}

// recipients drops blanks and rejects anything that is not an RFC 5322
// address.
func recipients(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return nil, invalid("recipient %q: %v", s, err)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, invalid("at least one recipient is required")
	}
	return out, nil
}
