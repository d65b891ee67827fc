package config

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, conf.BillingThreshold)
	assert.Equal(t, time.Hour, conf.SessionDuration)
	assert.Equal(t, 15*time.Minute, conf.OTPTTL)
	assert.Equal(t, 5, conf.OTPMaxAttempts)
	assert.Equal(t, "local", conf.FeedBackend)
	assert.Equal(t, log.LevelInfo, conf.Level())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BILLING_THRESHOLD", "2")
	t.Setenv("SESSION_DURATION", "5s")
	t.Setenv("FEED_BACKEND", "redis")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")

	conf, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, conf.BillingThreshold)
	assert.Equal(t, 5*time.Second, conf.SessionDuration)
	assert.Equal(t, "redis", conf.FeedBackend)
	assert.Equal(t, "sqlite", conf.DBDriver)
	assert.Equal(t, log.LevelDebug, conf.Level())
}
