package timezone_test

import (
	"campus/shared/timezone"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	original := timezone.GetLocation()
	t.Cleanup(func() { require.NoError(t, timezone.Load(original.String())) })

	require.NoError(t, timezone.Load("Asia/Jakarta"))
	assert.Equal(t, "Asia/Jakarta", timezone.GetLocation().String())
	assert.Equal(t, "Asia/Jakarta", timezone.Now().Location().String())

	noon := time.Date(2024, 6, 10, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-10 12:00", timezone.Format(noon, "2006-01-02 15:04"))

	parsed, err := timezone.Parse("2006-01-02 15:04", "2024-06-10 12:00")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(noon))
}

func TestLoadRejectsUnknownZone(t *testing.T) {
	before := timezone.GetLocation()

	err := timezone.Load("Mars/Olympus_Mons")

	require.Error(t, err)
	assert.Equal(t, before, timezone.GetLocation())
}
