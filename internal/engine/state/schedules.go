package state

import (
	"encoding/json"
	"fmt"

	"github.com/tubeq/tubeq/internal/engine/types"
)

// ScheduleStore persists scheduler entries in the state database.
type ScheduleStore struct{}

// SaveSchedule inserts or replaces an entry.
func (ScheduleStore) SaveSchedule(e types.ScheduleEntry) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	task, err := json.Marshal(e.Task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	_, err = conn.Exec(`
		INSERT INTO schedules (id, trigger_at, task, recurrence, status, last_task_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trigger_at = excluded.trigger_at,
			task = excluded.task,
			recurrence = excluded.recurrence,
			status = excluded.status,
			last_task_id = excluded.last_task_id`,
		e.ID, e.TriggerAt, string(task), string(e.Recurrence), string(e.Status), e.LastTaskID)
	return err
}

// DeleteSchedule removes an entry.
func (ScheduleStore) DeleteSchedule(id string) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`DELETE FROM schedules WHERE id = ?`, id)
	return err
}

// LoadSchedules returns every stored entry.
func (ScheduleStore) LoadSchedules() ([]types.ScheduleEntry, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`SELECT id, trigger_at, task, recurrence, status, last_task_id FROM schedules ORDER BY trigger_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ScheduleEntry
	for rows.Next() {
		var (
			e                   types.ScheduleEntry
			task, recur, status string
		)
		if err := rows.Scan(&e.ID, &e.TriggerAt, &task, &recur, &status, &e.LastTaskID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(task), &e.Task); err != nil {
			return nil, fmt.Errorf("schedule %s: bad task: %w", e.ID, err)
		}
		e.Recurrence = types.Recurrence(recur)
		e.Status = types.ScheduleStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
