// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"
)

// VerificationEmailData holds the fields rendered into a code email.
type VerificationEmailData struct {
	SiteName  string
	Code      string
	Action    string // "sign in", "finish creating your account"
	ExpiresIn string // "5 minutes"
}

// BuildVerificationEmail renders the plain-text and HTML bodies for a
// one-time code. The caller sets To.
func BuildVerificationEmail(data VerificationEmailData) Email {
	return Email{
		Subject:  fmt.Sprintf("Your %s verification code", data.SiteName),
		TextBody: render(verificationText.Execute, data),
		HTMLBody: render(verificationHTML.Execute, data),
	}
}

// render ignores execution errors: both templates are fixed and only
// reference fields of VerificationEmailData.
func render(exec func(io.Writer, any) error, data VerificationEmailData) string {
	var buf bytes.Buffer
	_ = exec(&buf, data)
	return buf.String()
}

var verificationText = texttemplate.Must(texttemplate.New("verification.txt").Parse(
	`Your {{.SiteName}} verification code is: {{.Code}}
{{if .Action}}
Enter it to {{.Action}}.
{{end}}
This code expires in {{.ExpiresIn}}.

If you did not request this code, you can ignore this email.
`))

var verificationHTML = htmltemplate.Must(htmltemplate.New("verification.html").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}} verification code</title></head>
<body style="margin:0;padding:24px;font-family:Arial,sans-serif;background:#f4f5f7;color:#1f2937;">
  <div style="max-width:440px;margin:0 auto;background:#fff;border-radius:6px;padding:28px;">
    <h2 style="margin:0 0 16px;font-size:20px;">{{.SiteName}}</h2>
    <p style="margin:0 0 16px;">Your verification code is:</p>
    <p style="margin:0 0 16px;font-size:30px;font-weight:bold;letter-spacing:6px;font-family:monospace;text-align:center;">{{.Code}}</p>
    {{if .Action}}<p style="margin:0 0 8px;">Enter it to {{.Action}}.</p>{{end}}
    <p style="margin:0 0 16px;font-size:13px;color:#6b7280;">This code expires in {{.ExpiresIn}}.</p>
    <p style="margin:0;font-size:12px;color:#9ca3af;">If you did not request this code, you can ignore this email.</p>
  </div>
</body>
</html>
`))
