package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/contextkeys"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

// Recorder appends activities. It records model changes for the admin
// services and authentication events for the login handlers.
type Recorder struct {
	db      *sql.DB
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRecorder creates a recorder; metrics may be nil
func NewRecorder(db *sql.DB, metrics *observability.Metrics) *Recorder {
	return &Recorder{
		db:      db,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record inserts an activity, filling CreatedAt when unset
func (r *Recorder) Record(ctx context.Context, a *Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}

	var props interface{}
	if len(a.Properties) > 0 {
		data, err := json.Marshal(a.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal properties: %w", err)
		}
		props = string(data)
	}

	query := `
		INSERT INTO activity_log (log_name, description, event, subject_type, subject_id, causer_type, causer_id, properties, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		a.LogName,
		a.Description,
		a.Event,
		nullString(a.SubjectType),
		a.SubjectID,
		nullString(a.CauserType),
		a.CauserID,
		props,
		a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	a.decorate()
	if r.metrics != nil {
		r.metrics.ActivitiesRecordedTotal.WithLabelValues(a.LogName, a.Event).Inc()
	}
	return nil
}

// RecordModel records a model change attributed to the request's user.
// Updates without changed attributes are not recorded.
func (r *Recorder) RecordModel(ctx context.Context, change ModelChange) error {
	props := map[string]interface{}{}
	switch change.Event {
	case EventUpdated:
		if len(change.Attributes) == 0 {
			return nil
		}
		props["attributes"] = change.Attributes
		props["old"] = change.Old
	default:
		if len(change.Attributes) > 0 {
			props["attributes"] = change.Attributes
		}
	}

	subjectID := change.SubjectID
	identifier := change.Identifier
	if identifier == "" {
		identifier = Identify("", "", subjectID)
	}

	a := &Activity{
		LogName:     LogNameFor(change.Model),
		Description: Describe(change.Model, identifier, change.Event),
		Event:       change.Event,
		SubjectType: change.Model,
		SubjectID:   &subjectID,
		Properties:  props,
	}
	if id, ok := contextkeys.GetUserIDInt64(ctx); ok {
		a.CauserType = CauserTypeUser
		a.CauserID = &id
	}
	return r.Record(ctx, a)
}

// LogAuthEvent records login, logout and failed login activities
func (r *Recorder) LogAuthEvent(ctx context.Context, event string, userID *int64, properties map[string]interface{}) error {
	a := &Activity{
		LogName:     LogNameAuth,
		Description: authDescription(event, properties),
		Event:       event,
		Properties:  properties,
	}
	if userID != nil {
		id := *userID
		a.SubjectType = CauserTypeUser
		a.SubjectID = &id
		if event != "login_failed" {
			a.CauserType = CauserTypeUser
			a.CauserID = &id
		}
	}
	return r.Record(ctx, a)
}

func authDescription(event string, properties map[string]interface{}) string {
	switch event {
	case "login":
		return "User logged in"
	case "logout":
		return "User logged out"
	case "login_failed":
		if email, ok := properties["email"].(string); ok && email != "" {
			return fmt.Sprintf("Failed login attempt for %s", email)
		}
		return "Failed login attempt"
	default:
		return "User " + EventLabel(event)
	}
}

// SafeRecordModel records a change and logs instead of failing the caller
func SafeRecordModel(ctx context.Context, recorder ModelRecorder, change ModelChange) {
	if recorder == nil {
		return
	}
	if err := recorder.RecordModel(ctx, change); err != nil {
		observability.FromContext(ctx).WithError(err).
			WithField("model", change.Model).
			Warnf("Failed to record %s activity", change.Event)
	}
}

// ModelRecorder is the write side used by the admin services
type ModelRecorder interface {
	RecordModel(ctx context.Context, change ModelChange) error
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
