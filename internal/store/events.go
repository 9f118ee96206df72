package store

import (
	"context"
	"fmt"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

func (s *BaseStore) SetUserPreference(ctx context.Context, userID int64, name, value string) error {
	_, err := s.DB.ExecContext(ctx, s.q(`
		INSERT INTO user_preferences (userid, name, value) VALUES (?, ?, ?)
		ON CONFLICT (userid, name) DO UPDATE SET value = excluded.value
	`), userID, name, value)
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", name, err)
	}
	return nil
}

func (s *BaseStore) LogEvent(ctx context.Context, ev models.LogEvent) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO logstore (eventname, objectid, courseid, userid, other, timecreated)
		VALUES (:eventname, :objectid, :courseid, :userid, :other, :timecreated)
	`, ev)
	if err != nil {
		return fmt.Errorf("failed to log event %s: %w", ev.EventName, err)
	}
	return nil
}

func (s *BaseStore) GetCalendarEvent(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	var ev models.CalendarEvent
	err := s.DB.GetContext(ctx, &ev, s.q(`
		SELECT id, courseid, modulename, instance, eventtype, timestart
		FROM calendar_events
		WHERE id = ?
	`), id)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar event %d: %w", id, err)
	}
	return &ev, nil
}

func (s *BaseStore) UpsertCalendarEvent(ctx context.Context, ev models.CalendarEvent) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO calendar_events (courseid, modulename, instance, eventtype, timestart)
		VALUES (:courseid, :modulename, :instance, :eventtype, :timestart)
		ON CONFLICT (modulename, instance, eventtype) DO UPDATE SET
		courseid = excluded.courseid,
		timestart = excluded.timestart
	`, ev)
	if err != nil {
		return fmt.Errorf("failed to save calendar event: %w", err)
	}
	return nil
}

func (s *BaseStore) DeleteCalendarEvent(ctx context.Context, moduleName string, instance int64, eventType string) error {
	_, err := s.DB.ExecContext(ctx, s.q(`
		DELETE FROM calendar_events WHERE modulename = ? AND instance = ? AND eventtype = ?
	`), moduleName, instance, eventType)
	if err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}
