// Package audittest provides an in-memory activity recorder for service tests.
package audittest

import (
	"context"
	"sync"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
)

// Recorder keeps every recorded model change in memory
type Recorder struct {
	mu      sync.Mutex
	changes []audit.ModelChange
	Err     error
}

// RecordModel stores change, or returns Err when set
func (r *Recorder) RecordModel(ctx context.Context, change audit.ModelChange) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return nil
}

// Changes returns a copy of the recorded changes
func (r *Recorder) Changes() []audit.ModelChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.ModelChange, len(r.changes))
	copy(out, r.changes)
	return out
}

// Events returns "Model:event" for each recorded change
func (r *Recorder) Events() []string {
	changes := r.Changes()
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Model + ":" + c.Event
	}
	return out
}

// Last returns the most recent change
func (r *Recorder) Last() (audit.ModelChange, bool) {
	changes := r.Changes()
	if len(changes) == 0 {
		return audit.ModelChange{}, false
	}
	return changes[len(changes)-1], true
}
