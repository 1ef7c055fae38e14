package processor

import (
	"bytes"
	"fmt"
	"html/template"

	"LetterFlow/internal/models"
)

// issueHTML is the wrapper around an issue's already-rendered body. The
// body arrives as trusted HTML produced by the editor pipeline; everything
// else is escaped normally.
var issueHTML = template.Must(template.New("issue").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f6f6f6;">
  <div style="max-width:600px;margin:0 auto;padding:24px;background:#ffffff;font-family:sans-serif;">
    {{if .SenderImage}}<img src="{{.SenderImage}}" alt="{{.SenderName}}" width="48" height="48" style="border-radius:50%;">{{end}}
    <h1 style="font-size:24px;">{{.Title}}</h1>
    {{if .Excerpt}}<p style="color:#555;">{{.Excerpt}}</p>{{end}}
    {{.Body}}
    <hr style="border:none;border-top:1px solid #eee;margin:32px 0 16px;">
    <p style="font-size:12px;color:#999;">
      {{.SenderName}} &middot; <a href="{{.CanonicalURL}}">Read online</a> &middot;
      <a href="{{.UnsubscribeURL}}">Unsubscribe</a>
    </p>
  </div>
</body>
</html>`))

type issueData struct {
	Title          string
	Excerpt        string
	Body           template.HTML
	CanonicalURL   string
	SenderName     string
	SenderImage    string
	UnsubscribeURL string
}

// renderIssue produces the HTML and plain-text bodies for one recipient.
func renderIssue(job models.EmailJob, unsubscribeURL string) (html, text string, err error) {
	var buf bytes.Buffer
	err = issueHTML.Execute(&buf, issueData{
		Title:          job.Title,
		Excerpt:        job.Excerpt,
		Body:           template.HTML(job.BodyHTML),
		CanonicalURL:   job.CanonicalURL,
		SenderName:     job.SenderName,
		SenderImage:    job.SenderImage,
		UnsubscribeURL: unsubscribeURL,
	})
	if err != nil {
		return "", "", fmt.Errorf("render issue %s: %w", job.IssueID, err)
	}

	text = fmt.Sprintf("%s\n\n%s\n\nRead online: %s\n\nUnsubscribe: %s\n",
		job.Title, job.Excerpt, job.CanonicalURL, unsubscribeURL)

	return buf.String(), text, nil
}
