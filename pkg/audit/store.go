package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Store queries and deletes activities
type Store struct {
	db      *sql.DB
	dialect storage.Dialect
}

// NewStore creates an activity store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, dialect: storage.DialectOf(db)}
}

const selectActivity = `
	SELECT a.id, a.log_name, a.description, a.event, a.subject_type, a.subject_id,
		a.causer_type, a.causer_id, u.name, a.properties, a.created_at
	FROM activity_log a
	LEFT JOIN users u ON u.id = a.causer_id
`

// where builds the WHERE clause for f, numbering placeholders from 1
func (f Filter) where() (string, []interface{}) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	n := 1

	if f.Search != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(a.description) LIKE LOWER($%d) OR LOWER(a.log_name) LIKE LOWER($%d) OR LOWER(a.event) LIKE LOWER($%d))",
			n, n, n))
		args = append(args, "%"+f.Search+"%")
		n++
	}
	if f.LogName != "" {
		clauses = append(clauses, fmt.Sprintf("a.log_name = $%d", n))
		args = append(args, f.LogName)
		n++
	}
	if f.Event != "" {
		clauses = append(clauses, fmt.Sprintf("a.event = $%d", n))
		args = append(args, f.Event)
		n++
	}
	if f.SubjectType != "" {
		clauses = append(clauses, fmt.Sprintf("a.subject_type = $%d", n))
		args = append(args, f.SubjectType)
		n++
	}
	if f.CauserID != nil {
		clauses = append(clauses, fmt.Sprintf("a.causer_id = $%d", n))
		args = append(args, *f.CauserID)
		n++
	}
	if f.DateFrom != nil {
		clauses = append(clauses, fmt.Sprintf("a.created_at >= $%d", n))
		args = append(args, startOfDay(*f.DateFrom))
		n++
	}
	if f.DateTo != nil {
		clauses = append(clauses, fmt.Sprintf("a.created_at < $%d", n))
		args = append(args, startOfDay(*f.DateTo).AddDate(0, 0, 1))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f Filter) orderBy() string {
	sort := f.Sort
	if sort.Column == "" {
		sort.Column, sort.Direction = "created_at", "desc"
	}
	return " ORDER BY a." + sort.OrderBy() + ", a.id DESC"
}

// Search returns one page of matching activities, newest first by default,
// and the total number of matches
func (s *Store) Search(ctx context.Context, f Filter) ([]*Activity, int, error) {
	where, args := f.where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_log a"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	query := selectActivity + where + f.orderBy()
	if f.Page.PerPage > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Page.PerPage, f.Page.Offset())
	}

	activities, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// All returns every matching activity, ignoring pagination
func (s *Store) All(ctx context.Context, f Filter) ([]*Activity, error) {
	where, args := f.where()
	return s.query(ctx, selectActivity+where+f.orderBy(), args...)
}

// Before returns activities created before cutoff, oldest first
func (s *Store) Before(ctx context.Context, cutoff time.Time) ([]*Activity, error) {
	return s.query(ctx, selectActivity+" WHERE a.created_at < $1 ORDER BY a.created_at ASC, a.id ASC", cutoff.UTC())
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) ([]*Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]*Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return activities, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var (
		a                           Activity
		logName, event, subjectType sql.NullString
		causerType, causerName      sql.NullString
		subjectID, causerID         sql.NullInt64
		properties                  []byte
	)
	err := row.Scan(&a.ID, &logName, &a.Description, &event, &subjectType, &subjectID,
		&causerType, &causerID, &causerName, &properties, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.LogName = logName.String
	a.Event = event.String
	a.SubjectType = subjectType.String
	a.CauserType = causerType.String
	a.CauserName = causerName.String
	if subjectID.Valid {
		id := subjectID.Int64
		a.SubjectID = &id
	}
	if causerID.Valid {
		id := causerID.Int64
		a.CauserID = &id
	}
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &a.Properties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
		}
	}
	a.decorate()
	return &a, nil
}

// Get returns one activity
func (s *Store) Get(ctx context.Context, id int64) (*Activity, error) {
	a, err := scanActivity(s.db.QueryRowContext(ctx, selectActivity+" WHERE a.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("activity", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// Delete removes one activity
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM activity_log WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("activity", id)
	}
	return nil
}

// BulkDelete removes the given activities. Every id must exist.
func (s *Store) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.FieldError("ids", "at least one id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	in, args, _ := s.dialect.InInt64("id", 1, ids)

	var found int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_log WHERE "+in, args...).Scan(&found); err != nil {
		return 0, fmt.Errorf("failed to check activities: %w", err)
	}
	if found != len(uniqueIDs(ids)) {
		return 0, apperrors.FieldError("ids", "one or more selected activities do not exist")
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM activity_log WHERE "+in, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete activities: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete activities: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return n, nil
}

// Truncate deletes every activity when confirm equals TruncateConfirmation
func (s *Store) Truncate(ctx context.Context, confirm string) (int64, error) {
	if confirm != TruncateConfirmation {
		return 0, apperrors.FieldError("confirm", fmt.Sprintf("type %s to confirm", TruncateConfirmation))
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM activity_log")
	if err != nil {
		return 0, fmt.Errorf("failed to clear activities: %w", err)
	}
	return result.RowsAffected()
}

// Prune deletes activities created before cutoff
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM activity_log WHERE created_at < $1", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune activities: %w", err)
	}
	return result.RowsAffected()
}

// Stats counts activities today, this week (Monday start), this month and in total
func (s *Store) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	now = now.UTC()
	today := startOfDay(now)
	week := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := &Stats{}
	counts := []struct {
		dst  *int64
		from time.Time
		to   time.Time
	}{
		{&stats.Today, today, today.AddDate(0, 0, 1)},
		{&stats.ThisWeek, week, week.AddDate(0, 0, 7)},
		{&stats.ThisMonth, month, month.AddDate(0, 1, 0)},
	}
	for _, c := range counts {
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM activity_log WHERE created_at >= $1 AND created_at < $2",
			c.from, c.to,
		).Scan(c.dst)
		if err != nil {
			return nil, fmt.Errorf("failed to count activities: %w", err)
		}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_log").Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}
	return stats, nil
}

// FilterOptions returns distinct log names and events, and every user
func (s *Store) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts := &FilterOptions{}

	var err error
	if opts.LogNames, err = s.distinct(ctx, "log_name"); err != nil {
		return nil, err
	}
	if opts.Events, err = s.distinct(ctx, "event"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	opts.Users = make([]UserOption, 0)
	for rows.Next() {
		var u UserOption
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		opts.Users = append(opts.Users, u)
	}
	return opts, rows.Err()
}

// distinct lists the non-empty values of a whitelisted column
func (s *Store) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT DISTINCT %s FROM activity_log WHERE %s IS NOT NULL AND %s <> '' ORDER BY %s",
		column, column, column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", column, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
