package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Welcome is the data for the post-payment welcome email.
type Welcome struct {
	To                 string
	OwnerName          string
	DogName            string
	RegistrationNumber string
	CertificateURL     string
	ProfileURL         string
}

// UpdateLink is the data for the profile update link email.
type UpdateLink struct {
	To                 string
	OwnerName          string
	RegistrationNumber string
	UpdateURL          string
	ExpiresAt          time.Time
}

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<p>Dear {{.OwnerName}},</p>
<p>Welcome to the World Canine Union! <strong>{{.DogName}}</strong> is now
registered under number <strong>{{.RegistrationNumber}}</strong>.</p>
<p>Your registration certificate is ready:
<a href="{{.CertificateURL}}">download certificate</a>.</p>
<p>You can view the registration profile at any time:
<a href="{{.ProfileURL}}">{{.ProfileURL}}</a>.</p>
<p>Thank you,<br>World Canine Union</p>
`))

var updateLinkTmpl = template.Must(template.New("update_link").Parse(`
<p>Dear {{.OwnerName}},</p>
<p>A profile update was requested for registration
<strong>{{.RegistrationNumber}}</strong>. Use the link below to submit your
changes. The link is valid until {{.Expires}} and can be used once.</p>
<p><a href="{{.UpdateURL}}">Update registration profile</a></p>
<p>If you did not request this, you can ignore this email.</p>
<p>Thank you,<br>World Canine Union</p>
`))

// RenderWelcome returns the subject and HTML body for a welcome email.
func RenderWelcome(w Welcome) (subject, html string, err error) {
	subject = fmt.Sprintf("Your WCU registration %s is complete", w.RegistrationNumber)
	var b strings.Builder
	if err := welcomeTmpl.Execute(&b, w); err != nil {
		return "", "", fmt.Errorf("render welcome template: %w", err)
	}
	return subject, b.String(), nil
}

// RenderUpdateLink returns the subject and HTML body for an update link email.
func RenderUpdateLink(u UpdateLink) (subject, html string, err error) {
	subject = fmt.Sprintf("Profile update link for %s", u.RegistrationNumber)
	var b strings.Builder
	data := struct {
		UpdateLink
		Expires string
	}{u, u.ExpiresAt.UTC().Format("Jan 2, 2006 15:04 MST")}
	if err := updateLinkTmpl.Execute(&b, data); err != nil {
		return "", "", fmt.Errorf("render update link template: %w", err)
	}
	return subject, b.String(), nil
}
