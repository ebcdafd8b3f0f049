package service

import (
	"campus/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFromConfig(t *testing.T) {
	t.Run("copies scheduling hours", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Scheduling.OpeningTime = "08:00"
		cfg.Scheduling.ClosingTime = "16:00"
		cfg.Scheduling.EnforceExamHours = true

		policy, err := policyFromConfig(cfg)

		require.NoError(t, err)
		assert.Equal(t, "08:00", policy.OpeningTime)
		assert.Equal(t, "16:00", policy.ClosingTime)
		assert.True(t, policy.EnforceExamHours)
	})

	t.Run("rejects an unpadded opening time", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Scheduling.OpeningTime = "7:00"
		cfg.Scheduling.ClosingTime = "17:00"

		_, err := policyFromConfig(cfg)

		assert.ErrorContains(t, err, `opening time "7:00" must be formatted as HH:MM`)
	})

	t.Run("rejects a closing time before opening", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Scheduling.OpeningTime = "12:00"
		cfg.Scheduling.ClosingTime = "09:00"

		_, err := policyFromConfig(cfg)

		assert.Error(t, err)
	})
}
