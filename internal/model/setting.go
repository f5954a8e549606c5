package model

import "time"

// AppSetting is one persisted key-value pair.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SystemSettings is the global proctoring configuration read by the
// proctoring client and by session flagging.
type SystemSettings struct {
	FullscreenRequired       bool `json:"fullscreen_required"`
	TabSwitchingDetection    bool `json:"tab_switching_detection"`
	InactivityTimeoutSeconds int  `json:"inactivity_timeout_seconds" binding:"min=1"`
	ViolationThreshold       int  `json:"violation_threshold" binding:"min=1"`
	KeyboardShortcutsBlocked bool `json:"keyboard_shortcuts_blocked"`
	RightClickDisabled       bool `json:"right_click_disabled"`
	DevToolsDetection        bool `json:"dev_tools_detection"`
	SessionTimeoutSeconds    int  `json:"session_timeout_seconds" binding:"min=1"`
}

// DefaultSystemSettings returns the settings used before any save.
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		FullscreenRequired:       true,
		TabSwitchingDetection:    true,
		InactivityTimeoutSeconds: 300,
		ViolationThreshold:       3,
		KeyboardShortcutsBlocked: true,
		RightClickDisabled:       true,
		DevToolsDetection:        true,
		SessionTimeoutSeconds:    1800,
	}
}
