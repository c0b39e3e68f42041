package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/phdlabs/admind/internal/model"
)

// Setting keys of the console preferences.
const (
	SettingSecurityAlerts         = "security_alerts"
	SettingWeeklyDigest           = "weekly_digest"
	SettingAutoApproveInvitations = "auto_approve_invitations"
)

// GetSetting retrieves a setting value by key. Returns empty string and
// ErrNotFound if the key doesn't exist.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	if err := s.get(ctx, s.db, &v, s.sb.Select("value").From("settings").Where(sq.Eq{"setting_key": key})); err != nil {
		return "", err
	}
	return v, nil
}

// SetSetting stores a setting value, replacing any previous value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	n, err := s.count(ctx, "settings", sq.Eq{"setting_key": key})
	if err != nil {
		return err
	}
	if n > 0 {
		_, err = s.exec(ctx, s.db, s.sb.Update("settings").Set("value", value).Where(sq.Eq{"setting_key": key}))
	} else {
		_, err = s.exec(ctx, s.db, s.sb.Insert("settings").Columns("setting_key", "value").Values(key, value))
	}
	return err
}

// GetSettings returns the console preferences, falling back to the defaults
// for keys that were never saved.
func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	out := model.DefaultSettings()
	for key, dst := range map[string]*bool{
		SettingSecurityAlerts:         &out.SecurityAlerts,
		SettingWeeklyDigest:           &out.WeeklyDigest,
		SettingAutoApproveInvitations: &out.AutoApproveInvitations,
	} {
		v, err := s.GetSetting(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("get setting %s: %w", key, err)
		}
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
	return out, nil
}

// SaveSettings persists the console preferences.
func (s *Store) SaveSettings(ctx context.Context, st model.Settings) error {
	for key, v := range map[string]bool{
		SettingSecurityAlerts:         st.SecurityAlerts,
		SettingWeeklyDigest:           st.WeeklyDigest,
		SettingAutoApproveInvitations: st.AutoApproveInvitations,
	} {
		if err := s.SetSetting(ctx, key, strconv.FormatBool(v)); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return nil
}
