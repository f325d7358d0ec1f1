package contact

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
)

var htmlBody = template.Must(template.New("html").Funcs(template.FuncMap{
	"lines": htmlLines,
}).Parse(`<h3>New Contact Submission</h3>
<p><strong>From:</strong> {{.Email}}</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Message:</strong><br>{{lines .Message}}</p>
{{- if .Reference}}
<p style="color:#888;font-size:small">Reference: {{.Reference}}</p>
{{- end}}
`))

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`New Contact Submission

From: {{.Email}}
Subject: {{.Subject}}

Message:
{{.Message}}
{{- if .Reference}}

Reference: {{.Reference}}
{{- end}}
`))

type bodyData struct {
	Submission
	Reference string
}

// htmlLines escapes s and turns line breaks into <br> tags.
func htmlLines(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>\n"))
}

// renderBodies produces the HTML and plain-text bodies for a submission.
// Every submitted field is escaped in the HTML body.
func renderBodies(sub Submission, reference string) (htmlOut, textOut string, err error) {
	data := bodyData{Submission: sub, Reference: reference}

	var hb bytes.Buffer
	if err := htmlBody.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}

	var tb bytes.Buffer
	if err := textBody.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}

	return hb.String(), tb.String(), nil
}
