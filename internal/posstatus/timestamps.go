package posstatus

import (
	"time"

	"github.com/sejinpark/posportal-backend/pkg/db/models"
)

// NormalizeTimestamp coerces an instant into UTC at millisecond precision,
// the only form this package trusts on the wire or on disk.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// timestampRepairs records which fields of a history row were fixed, so the
// write-back touches exactly those columns and nothing else.
type timestampRepairs struct {
	OccurredAt bool
	Approval   bool
}

// Any reports whether the row needs a write-back at all.
func (r timestampRepairs) Any() bool {
	return r.OccurredAt || r.Approval
}

// repairStatusChange fixes a malformed stored history row in place and
// reports which fields changed. A zero occurred-at is backfilled from the
// row's insert time so ordering survives bad writes from older clients. A
// zero-but-set approval timestamp is cleared along with its approver, so the
// row reads as unapproved rather than half-approved.
func repairStatusChange(change *models.StatusChange) timestampRepairs {
	var repairs timestampRepairs
	if change.OccurredAt.IsZero() {
		change.OccurredAt = NormalizeTimestamp(change.CreatedAt)
		repairs.OccurredAt = true
	}
	if change.ApprovedAt != nil && change.ApprovedAt.IsZero() {
		change.ApprovedAt = nil
		change.ApprovedBy = nil
		repairs.Approval = true
	}
	return repairs
}
