package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/model"
)

func TestSettingService_DefaultsBeforeSave(t *testing.T) {
	env := newTestEnv(t)

	settings, err := env.settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSystemSettings(), settings)

	threshold, err := env.settings.ViolationThreshold(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, threshold)
}

func TestSettingService_SaveReplacesAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	want := model.SystemSettings{
		FullscreenRequired:       false,
		TabSwitchingDetection:    true,
		InactivityTimeoutSeconds: 120,
		ViolationThreshold:       5,
		KeyboardShortcutsBlocked: false,
		RightClickDisabled:       true,
		DevToolsDetection:        false,
		SessionTimeoutSeconds:    3600,
	}
	saved, err := env.settings.Save(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, want, saved)

	got, err := env.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	public, err := env.settings.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, public)

	assert.Contains(t, env.logMessages(t), "System settings updated")
}

func TestSettingService_SaveValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bad := model.DefaultSystemSettings()
	bad.ViolationThreshold = 0
	bad.SessionTimeoutSeconds = -1

	_, err := env.settings.Save(ctx, bad)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "violation_threshold")
	assert.Contains(t, ve.Fields, "session_timeout_seconds")
	assert.NotContains(t, ve.Fields, "inactivity_timeout_seconds")

	got, err := env.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSystemSettings(), got)
}

func TestSettingService_IgnoresUnparseableValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Settings.ReplaceAll(ctx, map[string]string{
		"violation_threshold":     "three",
		"fullscreen_required":     "maybe",
		"session_timeout_seconds": "0",
		"right_click_disabled":    "false",
	}))

	got, err := env.settings.Get(ctx)
	require.NoError(t, err)
	defaults := model.DefaultSystemSettings()
	assert.Equal(t, defaults.ViolationThreshold, got.ViolationThreshold)
	assert.Equal(t, defaults.FullscreenRequired, got.FullscreenRequired)
	assert.Equal(t, defaults.SessionTimeoutSeconds, got.SessionTimeoutSeconds)
	assert.False(t, got.RightClickDisabled)
}
