package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"serenote/internal/domain"
)

// Repo is the SQLite task store.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const (
	assigneeUser = "user"
	assigneeRole = "role"
)

const taskColumns = `message_id,channel_id,guild_id,author_id,title,details,status,created_at,updated_at,completed_at`

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var guildID, details, completedAt sql.NullString
	var status string
	err := row.Scan(&t.MessageID, &t.ChannelID, &guildID, &t.AuthorID, &t.Title, &details, &status, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Status = domain.Status(status)
	if guildID.Valid {
		t.GuildID = guildID.String
	}
	if details.Valid {
		t.Details = details.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	return t, nil
}

// InsertTask stores a task and its assignees in one transaction.
func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.MessageID, t.ChannelID, nullable(t.GuildID), t.AuthorID, t.Title, nullable(t.Details), string(t.Status),
		t.CreatedAt, t.UpdatedAt, nullableStringPtr(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	if err := insertAssignees(ctx, tx, t.MessageID, assigneeUser, t.AssigneeIDs); err != nil {
		return err
	}
	if err := insertAssignees(ctx, tx, t.MessageID, assigneeRole, t.AssigneeRoleIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertAssignees(ctx context.Context, tx *sql.Tx, messageID, kind string, ids []string) error {
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_assignees(message_id,kind,assignee_id,position) VALUES (?,?,?,?)`,
			messageID, kind, id, i); err != nil {
			return fmt.Errorf("insert %s assignee: %w", kind, err)
		}
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, messageID string) (domain.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE message_id=?`, messageID))
	if err != nil {
		return t, err
	}
	if err := r.loadAssignees(ctx, &t); err != nil {
		return t, err
	}
	return t, nil
}

func (r Repo) loadAssignees(ctx context.Context, t *domain.Task) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind, assignee_id FROM task_assignees WHERE message_id=? ORDER BY kind, position`, t.MessageID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.AssigneeIDs = []string{}
	t.AssigneeRoleIDs = []string{}
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return err
		}
		if kind == assigneeRole {
			t.AssigneeRoleIDs = append(t.AssigneeRoleIDs, id)
		} else {
			t.AssigneeIDs = append(t.AssigneeIDs, id)
		}
	}
	return rows.Err()
}

// SetTaskStatus writes a status change. completedAt is cleared when nil.
func (r Repo) SetTaskStatus(ctx context.Context, messageID string, status domain.Status, updatedAt string, completedAt *string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET status=?, updated_at=?, completed_at=? WHERE message_id=?`,
		string(status), updatedAt, nullableStringPtr(completedAt), messageID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, messageID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE message_id=?`, messageID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE message_id=?`, messageID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ListTasks returns tasks in creation order. AssigneeID matches direct user assignment only.
func (r Repo) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.AssigneeID != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM task_assignees a WHERE a.message_id=tasks.message_id AND a.kind=? AND a.assignee_id=?)`)
		args = append(args, assigneeUser, f.AssigneeID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, string(f.Status))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at ASC, rowid ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	for i := range res {
		if err := r.loadAssignees(ctx, &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// AppendEvent inserts a journal entry and returns its id.
func (r Repo) AppendEvent(ctx context.Context, e domain.Event) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO events(ts,type,message_id,actor_id,payload_json) VALUES (?,?,?,?,?)`,
		e.TS, e.Type, nullable(e.MessageID), nullable(e.ActorID), e.Payload)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const eventColumns = `id,ts,type,message_id,actor_id,payload_json`

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var messageID, actorID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &messageID, &actorID, &e.Payload); err != nil {
			return nil, err
		}
		e.MessageID = messageID.String
		e.ActorID = actorID.String
		res = append(res, e)
	}
	return res, rows.Err()
}

// ListEvents returns the newest events first.
func (r Repo) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.MessageID != "" {
		clauses = append(clauses, "message_id=?")
		args = append(args, f.MessageID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.Cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Cursor)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM events WHERE %s ORDER BY id DESC LIMIT ?`, eventColumns, strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// EventsAfter returns events with ids greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, cursor int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// LatestEventID returns the most recent event id, or 0.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) Close() error {
	return r.DB.Close()
}
