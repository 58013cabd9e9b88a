package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"creator_mirror/internal/domain"
)

// Setting keys. Values are stored as strings and parsed per key.
const (
	KeyDownloadVideo      = "download_video"
	KeyDownloadGallery    = "download_gallery"
	KeyAutoUpdateInterval = "auto_update_interval" // minutes
)

var settingDefaults = map[string]string{
	KeyDownloadVideo:      "true",
	KeyDownloadGallery:    "true",
	KeyAutoUpdateInterval: "120",
}

// SettingStore holds the operator-tunable runtime configuration: global
// download defaults and the scheduler interval. Readers re-read at defined
// points (top of each scheduler cycle, start of each gating phase), so
// changes apply to the next run without a restart.
type SettingStore struct {
	db *sqlx.DB
}

func NewSettingStore(db *sqlx.DB) *SettingStore {
	return &SettingStore{db: db}
}

func (s *SettingStore) Get(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SettingStore) Set(ctx context.Context, key, value string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	return err
}

func (s *SettingStore) GlobalDownloadDefault(ctx context.Context, t domain.ContentType) (bool, error) {
	key := KeyDownloadVideo
	if t == domain.ContentTypeGallery {
		key = KeyDownloadGallery
	}
	value, err := s.Get(ctx, key, settingDefaults[key])
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

func (s *SettingStore) AutoUpdateInterval(ctx context.Context) (time.Duration, error) {
	value, err := s.Get(ctx, KeyAutoUpdateInterval, settingDefaults[KeyAutoUpdateInterval])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(value)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid %s value %q", KeyAutoUpdateInterval, value)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// EnsureDefaults seeds missing settings without overwriting operator values.
func (s *SettingStore) EnsureDefaults(ctx context.Context) error {
	for key, value := range settingDefaults {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING`,
			key, value)
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return nil
}
