package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

const publicSettingsTTL = 5 * time.Minute

// Persisted keys of SystemSettings.
const (
	settingFullscreenRequired       = "fullscreen_required"
	settingTabSwitchingDetection    = "tab_switching_detection"
	settingInactivityTimeoutSeconds = "inactivity_timeout_seconds"
	settingViolationThreshold       = "violation_threshold"
	settingKeyboardShortcutsBlocked = "keyboard_shortcuts_blocked"
	settingRightClickDisabled       = "right_click_disabled"
	settingDevToolsDetection        = "dev_tools_detection"
	settingSessionTimeoutSeconds    = "session_timeout_seconds"
)

type SettingService struct {
	settingRepo repository.SettingRepository
	activity    *ActivityService
	rdb         *redis.Client
	log         zerolog.Logger
}

func NewSettingService(settingRepo repository.SettingRepository, activity *ActivityService, rdb *redis.Client, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		activity:    activity,
		rdb:         rdb,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

// Get returns the stored settings, falling back to defaults for every key
// that was never saved or cannot be parsed.
func (s *SettingService) Get(ctx context.Context) (model.SystemSettings, error) {
	settingsList, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get all settings")
		return model.SystemSettings{}, err
	}

	values := make(map[string]string, len(settingsList))
	for _, setting := range settingsList {
		values[setting.Key] = setting.Value
	}

	settings := model.DefaultSystemSettings()
	s.readBool(values, settingFullscreenRequired, &settings.FullscreenRequired)
	s.readBool(values, settingTabSwitchingDetection, &settings.TabSwitchingDetection)
	s.readInt(values, settingInactivityTimeoutSeconds, &settings.InactivityTimeoutSeconds)
	s.readInt(values, settingViolationThreshold, &settings.ViolationThreshold)
	s.readBool(values, settingKeyboardShortcutsBlocked, &settings.KeyboardShortcutsBlocked)
	s.readBool(values, settingRightClickDisabled, &settings.RightClickDisabled)
	s.readBool(values, settingDevToolsDetection, &settings.DevToolsDetection)
	s.readInt(values, settingSessionTimeoutSeconds, &settings.SessionTimeoutSeconds)
	return settings, nil
}

func (s *SettingService) readBool(values map[string]string, key string, dst *bool) {
	raw, ok := values[key]
	if !ok {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.log.Warn().Str("key", key).Str("value", raw).Msg("Ignoring unparseable setting")
		return
	}
	*dst = v
}

func (s *SettingService) readInt(values map[string]string, key string, dst *int) {
	raw, ok := values[key]
	if !ok {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		s.log.Warn().Str("key", key).Str("value", raw).Msg("Ignoring unparseable setting")
		return
	}
	*dst = v
}

// Save replaces every setting at once.
func (s *SettingService) Save(ctx context.Context, settings model.SystemSettings) (model.SystemSettings, error) {
	fe := fieldErrors{}
	if settings.ViolationThreshold <= 0 {
		fe[settingViolationThreshold] = "must be greater than 0"
	}
	if settings.InactivityTimeoutSeconds <= 0 {
		fe[settingInactivityTimeoutSeconds] = "must be greater than 0"
	}
	if settings.SessionTimeoutSeconds <= 0 {
		fe[settingSessionTimeoutSeconds] = "must be greater than 0"
	}
	if err := fe.err(); err != nil {
		return model.SystemSettings{}, err
	}

	values := map[string]string{
		settingFullscreenRequired:       strconv.FormatBool(settings.FullscreenRequired),
		settingTabSwitchingDetection:    strconv.FormatBool(settings.TabSwitchingDetection),
		settingInactivityTimeoutSeconds: strconv.Itoa(settings.InactivityTimeoutSeconds),
		settingViolationThreshold:       strconv.Itoa(settings.ViolationThreshold),
		settingKeyboardShortcutsBlocked: strconv.FormatBool(settings.KeyboardShortcutsBlocked),
		settingRightClickDisabled:       strconv.FormatBool(settings.RightClickDisabled),
		settingDevToolsDetection:        strconv.FormatBool(settings.DevToolsDetection),
		settingSessionTimeoutSeconds:    strconv.Itoa(settings.SessionTimeoutSeconds),
	}
	if err := s.settingRepo.ReplaceAll(ctx, values); err != nil {
		s.log.Error().Err(err).Msg("failed to save settings")
		return model.SystemSettings{}, err
	}

	if s.rdb != nil {
		if err := s.rdb.Del(ctx, config.CacheKey.PublicSettingsKey()).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to invalidate settings cache")
		}
	}

	s.activity.record(ctx, model.LogTypeSystem, "System settings updated", model.SeverityMedium)
	return settings, nil
}

// Public serves the proctoring client. It reads through the Redis cache
// when one is configured.
func (s *SettingService) Public(ctx context.Context) (model.SystemSettings, error) {
	if s.rdb == nil {
		return s.Get(ctx)
	}

	key := config.CacheKey.PublicSettingsKey()
	cached, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var settings model.SystemSettings
		if err := json.Unmarshal(cached, &settings); err == nil {
			return settings, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Settings cache read failed")
	}

	settings, err := s.Get(ctx)
	if err != nil {
		return model.SystemSettings{}, err
	}
	if data, err := json.Marshal(settings); err == nil {
		if err := s.rdb.Set(ctx, key, data, publicSettingsTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Settings cache write failed")
		}
	}
	return settings, nil
}

// ViolationThreshold is the count at which sessions become flagged.
func (s *SettingService) ViolationThreshold(ctx context.Context) (int, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return settings.ViolationThreshold, nil
}
