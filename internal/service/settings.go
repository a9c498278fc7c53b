package service

import (
	"context"
	"log"

	"github.com/homedeliver/api/internal/database"
	"github.com/homedeliver/api/internal/schedule"
)

// SettingsStore defines the DB methods needed to read app settings.
// Satisfied by *database.Queries.
type SettingsStore interface {
	GetAppSettings(ctx context.Context) (database.AppSetting, error)
}

// AppSettings is the runtime view of the app_settings row.
type AppSettings struct {
	Schedule    schedule.Settings
	ReportEmail string
}

// LoadAppSettings overlays the stored cutoff on base. A missing or malformed
// row keeps base.
func LoadAppSettings(ctx context.Context, store SettingsStore, base AppSettings) AppSettings {
	row, err := store.GetAppSettings(ctx)
	if err != nil {
		log.Printf("WARN: app settings unavailable, using defaults: %v", err)
		return base
	}

	out := base
	if day, ok := schedule.ParseWeekday(row.WeeklyCutoffDay); ok {
		out.Schedule.CutoffDay = day
	} else {
		log.Printf("WARN: app settings: bad weekly_cutoff_day %q", row.WeeklyCutoffDay)
	}
	if h, m, err := schedule.ParseClock(row.WeeklyCutoffTime); err == nil {
		out.Schedule.CutoffHour, out.Schedule.CutoffMinute = h, m
	} else {
		log.Printf("WARN: app settings: %v", err)
	}
	if row.ReportEmail.Valid && row.ReportEmail.String != "" {
		out.ReportEmail = row.ReportEmail.String
	}
	return out
}
