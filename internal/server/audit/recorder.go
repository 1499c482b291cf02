// Package audit writes the append-only authentication log and exports it to
// object storage.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/events"
	"github.com/google/uuid"
)

// MaxUserAgent is the number of runes of the user agent that are kept.
const MaxUserAgent = 2000

// Meta describes the requester.
type Meta struct {
	IPAddress string
	UserAgent string
}

type Recorder struct {
	events events.Repository
	now    func() time.Time
}

func NewRecorder(repo events.Repository) *Recorder {
	return &Recorder{events: repo, now: time.Now}
}

// Record appends one event. userID is empty when the username did not
// resolve to a user; the raw username is stored either way.
func (r *Recorder) Record(ctx context.Context, userID, userName string, outcome models.Outcome, meta Meta) (*models.AuditEvent, error) {
	e := &models.AuditEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		Outcome:   outcome,
		CreatedAt: r.now().UTC(),
		IPAddress: meta.IPAddress,
		UserAgent: common.Truncate(meta.UserAgent, MaxUserAgent),
	}
	if err := r.events.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("append audit event: %w", err)
	}
	return e, nil
}
