package state

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/tubeq/tubeq/internal/engine/types"
)

const historyColumns = `id, url, title, channel, status, destination, output_path, media_type, error, created_at, updated_at`

// UpsertHistory inserts or updates an entry. Empty fields of an update keep
// the stored value, so partial updates from individual events compose.
func UpsertHistory(e types.HistoryEntry) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	if e.UpdatedAt == 0 {
		e.UpdatedAt = now
	}

	_, err = conn.Exec(`
		INSERT INTO history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url         = CASE WHEN excluded.url         != '' THEN excluded.url         ELSE history.url END,
			title       = CASE WHEN excluded.title       != '' THEN excluded.title       ELSE history.title END,
			channel     = CASE WHEN excluded.channel     != '' THEN excluded.channel     ELSE history.channel END,
			status      = CASE WHEN excluded.status      != '' THEN excluded.status      ELSE history.status END,
			destination = CASE WHEN excluded.destination != '' THEN excluded.destination ELSE history.destination END,
			output_path = CASE WHEN excluded.output_path != '' THEN excluded.output_path ELSE history.output_path END,
			media_type  = CASE WHEN excluded.media_type  != '' THEN excluded.media_type  ELSE history.media_type END,
			error       = CASE WHEN excluded.error       != '' THEN excluded.error       ELSE history.error END,
			updated_at  = excluded.updated_at`,
		e.ID, e.URL, e.Title, e.Channel, e.Status, e.Destination, e.OutputPath, e.MediaType, e.Error, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

func scanHistory(rows *sql.Rows) ([]types.HistoryEntry, error) {
	defer rows.Close()
	var out []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		if err := rows.Scan(&e.ID, &e.URL, &e.Title, &e.Channel, &e.Status, &e.Destination,
			&e.OutputPath, &e.MediaType, &e.Error, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListHistory returns every entry, newest first.
func ListHistory() ([]types.HistoryEntry, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`SELECT ` + historyColumns + ` FROM history ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

// GetHistory returns one entry.
func GetHistory(id string) (*types.HistoryEntry, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`SELECT `+historyColumns+` FROM history WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	entries, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return &entries[0], nil
}

// FailedHistory returns entries whose last status is "Download Error".
func FailedHistory() ([]types.HistoryEntry, error) {
	conn, err := GetDB()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`SELECT `+historyColumns+` FROM history WHERE status = ? ORDER BY created_at ASC, rowid ASC`, types.StatusError)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

type historySource []types.HistoryEntry

func (h historySource) String(i int) string {
	return strings.Join([]string{h[i].Title, h[i].Channel, h[i].URL}, " ")
}

func (h historySource) Len() int { return len(h) }

// SearchHistory fuzzy-matches query against title, channel and URL and
// returns the matches best first. An empty query returns everything.
func SearchHistory(query string) ([]types.HistoryEntry, error) {
	all, err := ListHistory()
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return all, nil
	}

	matches := fuzzy.FindFromNoSort(query, historySource(all))
	// Case-insensitive substring hits rank first, then by fuzzy score.
	lower := strings.ToLower(query)
	sortMatches(matches, func(i int) bool {
		return strings.Contains(strings.ToLower(historySource(all).String(i)), lower)
	})

	out := make([]types.HistoryEntry, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return out, nil
}

// DeleteHistory removes the given entries.
func DeleteHistory(ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	conn, err := GetDB()
	if err != nil {
		return 0, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := conn.Exec(`DELETE FROM history WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearHistory removes every entry.
func ClearHistory() error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`DELETE FROM history`)
	return err
}
