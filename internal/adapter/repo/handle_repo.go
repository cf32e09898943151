package repo

import (
	"context"
	"time"

	"regen/internal/domain"
	"regen/internal/infra"
	"regen/internal/sqlinline"
)

// HandleRecord is a persisted in-flight job handle, keyed by request
// identity. Records outliving their saga indicate a leaked remote job.
type HandleRecord struct {
	RequestID string
	Handle    domain.JobHandle
	CreatedAt time.Time
}

// HandleStorePG persists in-flight handles in PostgreSQL.
type HandleStorePG struct {
	runner infra.SQLExecutor
}

// NewHandleStore creates a handle store backed by the SQL runner.
func NewHandleStore(runner infra.SQLExecutor) *HandleStorePG {
	return &HandleStorePG{runner: runner}
}

// Record upserts the handle for a request.
func (s *HandleStorePG) Record(ctx context.Context, requestID string, handle domain.JobHandle) error {
	_, err := s.runner.Exec(ctx, sqlinline.QUpsertHandle, requestID, string(handle))
	return err
}

// Clear removes the handle record after compensation succeeded.
func (s *HandleStorePG) Clear(ctx context.Context, requestID string) error {
	_, err := s.runner.Exec(ctx, sqlinline.QDeleteHandle, requestID)
	return err
}

// ListStale returns records older than the given age, oldest first.
func (s *HandleStorePG) ListStale(ctx context.Context, olderThan time.Duration) ([]HandleRecord, error) {
	rows, err := s.runner.Query(ctx, sqlinline.QListStaleHandles, olderThan.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []HandleRecord
	for rows.Next() {
		var rec HandleRecord
		var handle string
		if err := rows.Scan(&rec.RequestID, &handle, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Handle = domain.JobHandle(handle)
		records = append(records, rec)
	}
	return records, rows.Err()
}
