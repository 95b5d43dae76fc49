package notifier

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/amishk599/jobradar/internal/model"
)

// batchHeader carries the batch id so a recipient can spot a resent batch.
const batchHeader = "X-Jobradar-Batch"

// Envelope is one message addressed for delivery.
type Envelope struct {
	From    string
	To      []string
	Date    time.Time
	Message Message
	// Postings is the batch the message was rendered from.
	Postings []model.Posting
}

// buildMIME encodes env as an RFC 5322 multipart/alternative message.
func buildMIME(env Envelope) ([]byte, error) {
	var h mail.Header
	date := env.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: env.From}})
	to := make([]*mail.Address, 0, len(env.To))
	for _, addr := range env.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	h.SetSubject(env.Message.Subject)
	if id := env.Message.BatchID; id != "" {
		h.SetMessageID(id + "@jobradar")
		h.Set(batchHeader, id)
	}

	var buf bytes.Buffer
	w, err := mail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating mime writer: %w", err)
	}
	if err := writeInlinePart(w, "text/plain", env.Message.Text); err != nil {
		return nil, err
	}
	if err := writeInlinePart(w, "text/html", env.Message.HTML); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing mime writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInlinePart(w *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ph.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := w.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		pw.Close()
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing %s part: %w", contentType, err)
	}
	return nil
}
