package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWelcome(t *testing.T) {
	subject, html, err := RenderWelcome(Welcome{
		To:                 "jane@example.com",
		OwnerName:          "Jane Miller",
		DogName:            "Rex",
		RegistrationNumber: "WCU-00042",
		CertificateURL:     "https://wcu.example/registrations/WCU-00042/certificate",
		ProfileURL:         "https://wcu.example/registrations/WCU-00042",
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "WCU-00042")
	assert.Contains(t, html, "Jane Miller")
	assert.Contains(t, html, "Rex")
	assert.Contains(t, html, "https://wcu.example/registrations/WCU-00042/certificate")
}

func TestRenderWelcomeEscapesHTML(t *testing.T) {
	_, html, err := RenderWelcome(Welcome{
		OwnerName:          `<script>alert("x")</script>`,
		DogName:            "Rex",
		RegistrationNumber: "WCU-00001",
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderUpdateLink(t *testing.T) {
	expires := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	subject, html, err := RenderUpdateLink(UpdateLink{
		OwnerName:          "Jane Miller",
		RegistrationNumber: "WCU-00042",
		UpdateURL:          "https://wcu.example/profile-updates?token=abc",
		ExpiresAt:          expires,
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "WCU-00042")
	assert.Contains(t, html, "https://wcu.example/profile-updates?token=abc")
	assert.True(t, strings.Contains(html, "Mar 15, 2026"), "expiry date should be rendered")
}
