package race

import (
	"context"
	"fmt"
	"strconv"
)

// Settings keys.
const (
	// InstantDeathKey holds the user's instant-death preference.
	InstantDeathKey = "instant_death"
	// RecoveryKey holds the stored preference as it was when a race started. It exists
	// only while a race is outstanding.
	RecoveryKey = "race_instant_death_backup"
)

// unsetBackup marks a race that started while InstantDeathKey was absent.
const unsetBackup = "unset"

// RecoverPreference puts the stored preference back the way a race the process never
// finished found it. It reports whether a backup was found.
func RecoverPreference(ctx context.Context, settings Settings) (bool, error) {
	value, ok, err := settings.GetSetting(ctx, RecoveryKey)
	if err != nil {
		return false, fmt.Errorf("failed to read race backup: %w", err)
	}
	if !ok {
		return false, nil
	}
	switch _, perr := strconv.ParseBool(value); {
	case value == unsetBackup:
		if err := settings.DeleteSetting(ctx, InstantDeathKey); err != nil {
			return false, fmt.Errorf("failed to clear instant death preference: %w", err)
		}
	case perr == nil:
		if err := settings.SetSetting(ctx, InstantDeathKey, value); err != nil {
			return false, fmt.Errorf("failed to restore instant death preference: %w", err)
		}
	}
	if err := settings.DeleteSetting(ctx, RecoveryKey); err != nil {
		return false, fmt.Errorf("failed to clear race backup: %w", err)
	}
	return true, nil
}
