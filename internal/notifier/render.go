package notifier

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// Message is a rendered notification, ready for any channel.
type Message struct {
	Subject string
	Text    string
	HTML    string
	// BatchID identifies the set of postings. Re-rendering the same batch
	// yields the same id.
	BatchID string
}

var htmlTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; }
.job { margin: 20px 0; padding: 15px; border-left: 4px solid #4CAF50; background-color: #f9f9f9; }
.job-title { font-size: 18px; font-weight: bold; color: #2c3e50; margin-bottom: 5px; }
.job-company { color: #7f8c8d; margin-bottom: 10px; }
.job-source { display: inline-block; background-color: #3498db; color: white; padding: 3px 8px; border-radius: 3px; font-size: 12px; }
.job-link { color: #3498db; text-decoration: none; }
.footer { margin-top: 30px; padding: 20px; text-align: center; color: #7f8c8d; font-size: 12px; }
</style>
</head>
<body>
<div class="header">
<h1>New Job Listings Found</h1>
<p>{{.Count}} new job(s) posted since the last check</p>
</div>
{{range .Postings}}<div class="job">
<div class="job-title">{{.Title}}</div>
<div class="job-company">Company: {{.Company}}</div>
<div class="job-source">{{.Source}}</div>
<div style="margin-top: 10px;"><a href="{{.URL}}" class="job-link" target="_blank">View Job</a></div>
</div>
{{end}}<div class="footer">
<p>Generated at: {{.Generated}}</p>
<p>Good luck with your applications!</p>
</div>
</body>
</html>
`))

type htmlPosting struct {
	Title   string
	Company string
	Source  string
	URL     string
}

// Render builds the subject, plain-text and HTML bodies for postings. Only
// the generated timestamp depends on now.
func Render(postings []model.Posting, now time.Time) (Message, error) {
	n := len(postings)

	var text strings.Builder
	fmt.Fprintf(&text, "Found %d new job listing(s):\n\n", n)
	for _, p := range postings {
		fmt.Fprintf(&text, "%s at %s\n", p.Title, p.CompanyOrUnknown())
		fmt.Fprintf(&text, "Link: %s\n\n", p.URL)
	}

	data := struct {
		Count     int
		Generated string
		Postings  []htmlPosting
	}{
		Count:     n,
		Generated: now.Format("2006-01-02 15:04:05"),
		Postings:  make([]htmlPosting, 0, n),
	}
	for _, p := range postings {
		data.Postings = append(data.Postings, htmlPosting{
			Title:   p.Title,
			Company: p.CompanyOrUnknown(),
			Source:  p.Source.DisplayName(),
			URL:     p.URL,
		})
	}

	var html bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("rendering html body: %w", err)
	}

	return Message{
		Subject: fmt.Sprintf("%d New Job Listing(s) Found", n),
		Text:    text.String(),
		HTML:    html.String(),
		BatchID: BatchID(postings),
	}, nil
}

// BatchID hashes the batch URLs in order.
func BatchID(postings []model.Posting) string {
	h := sha256.New()
	for _, p := range postings {
		h.Write([]byte(p.URL))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
