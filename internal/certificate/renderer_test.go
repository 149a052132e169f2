package certificate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() Data {
	return Data{
		RegistrationNumber: "WCU-00123",
		DogName:            "Rex",
		OwnerName:          "Jane Doe",
		Breed:              "Border Collie",
		Color:              "Black and white",
		IssuedAt:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := NewRenderer().Render(sampleData())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderDeterministicForFixedDate(t *testing.T) {
	r := NewRenderer()
	a, err := r.Render(sampleData())
	require.NoError(t, err)
	b, err := r.Render(sampleData())
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical input with pinned date must render identical bytes")
}

func TestRenderMissingFields(t *testing.T) {
	r := NewRenderer()

	d := sampleData()
	d.RegistrationNumber = ""
	_, err := r.Render(d)
	assert.ErrorIs(t, err, ErrMissingField)

	d = sampleData()
	d.DogName = ""
	_, err = r.Render(d)
	assert.ErrorIs(t, err, ErrMissingField)

	d = sampleData()
	d.OwnerName = ""
	_, err = r.Render(d)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestRenderOptionalFieldsMayBeEmpty(t *testing.T) {
	d := sampleData()
	d.Breed = ""
	d.Color = ""
	d.Description = ""
	out, err := NewRenderer().Render(d)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
