// -----------------------------------------------------------------------
// Last Modified: Wednesday, 5th November 2025 6:29:21 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"maragu.dev/goqite"

	"github.com/ternarybob/docugen/internal/models"
)

// ErrNoMessage is returned when the queue is empty
var ErrNoMessage = errors.New("no messages in queue")

// Manager is a thin wrapper around goqite.
// It provides ONLY queue operations, no business logic.
type Manager struct {
	q          *goqite.Queue
	maxReceive int
}

// NewManager creates a new queue manager. maxReceive is the N_max poison-pill
// threshold: a message received more than maxReceive times without being
// deleted is surfaced to the caller via Receive's recvCount so the worker
// runtime can fail the job instead of redelivering forever.
func NewManager(db *sql.DB, queueName string, maxReceive int) (*Manager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := goqite.Setup(ctx, db); err != nil {
		// Ignore "already exists" errors - this is expected on subsequent startups
		if !strings.Contains(err.Error(), "already exists") {
			return nil, err
		}
	}

	q := goqite.New(goqite.NewOpts{
		DB:   db,
		Name: queueName,
	})

	return &Manager{q: q, maxReceive: maxReceive}, nil
}

// Enqueue adds a work item to the queue.
// This is the ONLY way to add jobs to the queue.
func (m *Manager) Enqueue(ctx context.Context, item models.WorkItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return m.q.Send(ctx, goqite.Message{
		Body: data,
	})
}

// Received bundles a dequeued work item with the delivery bookkeeping the
// worker runtime needs to enforce the crash-recovery redelivery policy.
type Received struct {
	Item       models.WorkItem
	RecvCount  int
	ExceedsMax bool
	messageID  goqite.ID
	mgr        *Manager
}

// Ack deletes the message, marking it successfully processed.
func (r *Received) Ack(ctx context.Context) error {
	return r.mgr.q.Delete(ctx, r.messageID)
}

// Nack makes the message visible again immediately so another worker (or a
// future poll) can pick it up, unless the receive count already exceeds
// maxReceive, in which case the caller should fail the job and Ack instead.
func (r *Received) Nack(ctx context.Context) error {
	return r.mgr.q.Extend(ctx, r.messageID, 0)
}

// Extend pushes back the visibility timeout for a still-running job.
func (r *Received) Extend(ctx context.Context, duration time.Duration) error {
	return r.mgr.q.Extend(ctx, r.messageID, duration)
}

// Receive pulls the next work item from the queue.
func (m *Manager) Receive(ctx context.Context) (*Received, error) {
	gMsg, err := m.q.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if gMsg == nil {
		return nil, ErrNoMessage
	}

	var item models.WorkItem
	if err := json.Unmarshal(gMsg.Body, &item); err != nil {
		return nil, err
	}

	return &Received{
		Item:       item,
		RecvCount:  gMsg.Received,
		ExceedsMax: m.maxReceive > 0 && gMsg.Received > m.maxReceive,
		messageID:  gMsg.ID,
		mgr:        m,
	}, nil
}

// Close closes the queue manager.
func (m *Manager) Close() error {
	// goqite doesn't require explicit close, but we provide it for consistency
	return nil
}
