package audit

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

// CSVHeader is the first line of every export
const CSVHeader = "ID,Log Name,Description,Event,Subject Type,Subject ID,Causer,Created At"

// CSVContentType is the content type of exports
const CSVContentType = "text/csv"

// WriteCSV writes activities in export format. Only the description is
// quoted, with embedded quotes doubled.
func WriteCSV(w io.Writer, activities []*Activity) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(CSVHeader + "\n"); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, a := range activities {
		subjectID := "N/A"
		if a.SubjectID != nil {
			subjectID = strconv.FormatInt(*a.SubjectID, 10)
		}
		causer := a.CauserName
		if causer == "" {
			causer = "System"
		}

		_, err := fmt.Fprintf(bw, "%d,%s,\"%s\",%s,%s,%s,%s,%s\n",
			a.ID,
			a.LogName,
			strings.ReplaceAll(a.Description, `"`, `""`),
			a.Event,
			a.SubjectTypeName(),
			subjectID,
			causer,
			a.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		)
		if err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return bw.Flush()
}

// ExportFilename names an export produced at t
func ExportFilename(t time.Time) string {
	return "activity_logs_" + t.UTC().Format("2006-01-02_150405") + ".csv"
}

// ObjectPutter stores archive objects
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, content io.Reader, contentType string) error
}

// RetentionResult reports one retention run
type RetentionResult struct {
	Cutoff    time.Time `json:"cutoff"`
	Archived  int       `json:"archived"`
	ObjectKey string    `json:"object_key,omitempty"`
	Pruned    int64     `json:"pruned"`
}

// Retention prunes old activities, archiving them as CSV first when an
// object store is configured
type Retention struct {
	store   *Store
	objects ObjectPutter
	prefix  string
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRetention creates a retention job. objects and metrics may be nil.
func NewRetention(store *Store, objects ObjectPutter, prefix string, metrics *observability.Metrics) *Retention {
	return &Retention{
		store:   store,
		objects: objects,
		prefix:  prefix,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run removes activities older than days. When archiving fails nothing is pruned.
func (r *Retention) Run(ctx context.Context, days int) (*RetentionResult, error) {
	if days <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", days)
	}

	ctx, span := observability.StartSpan(ctx, "audit.retention")
	defer span.End()

	now := r.now()
	result := &RetentionResult{Cutoff: startOfDay(now).AddDate(0, 0, -days)}

	if r.objects != nil {
		old, err := r.store.Before(ctx, result.Cutoff)
		if err != nil {
			return nil, err
		}
		if len(old) > 0 {
			var buf bytes.Buffer
			if err := WriteCSV(&buf, old); err != nil {
				return nil, err
			}
			key := r.prefix + ExportFilename(now)
			if err := r.objects.PutObject(ctx, key, &buf, CSVContentType); err != nil {
				return nil, fmt.Errorf("failed to archive activities: %w", err)
			}
			result.Archived = len(old)
			result.ObjectKey = key
		}
	}

	pruned, err := r.store.Prune(ctx, result.Cutoff)
	if err != nil {
		return nil, err
	}
	result.Pruned = pruned

	if r.metrics != nil {
		r.metrics.ActivitiesPrunedTotal.Add(float64(pruned))
	}
	return result, nil
}
