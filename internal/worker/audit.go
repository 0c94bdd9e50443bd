package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/metrics"
	"github.com/dharsanguruparan/EventDrop/internal/queue"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

// Auditor is plugged into the asynq worker loop. It confirms that the objects
// of a committed batch are present in the storage backend.
type Auditor struct {
	backend storage.Backend
	log     *zap.Logger
}

// NewAuditor constructs an Auditor over backend.
func NewAuditor(backend storage.Backend, log *zap.Logger) *Auditor {
	return &Auditor{backend: backend, log: log.Named("worker.audit")}
}

// Handler registers the audit task handler.
func (a *Auditor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.AuditUploadTask, a.HandleAudit)
	return mux
}

// HandleAudit checks every object in the payload. Missing objects are logged
// and counted; a storage error fails the task so asynq retries it.
func (a *Auditor) HandleAudit(ctx context.Context, task *asynq.Task) error {
	var payload queue.AuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	log := a.log.With(zap.String("event_id", payload.EventID))

	missing := 0
	for _, ref := range payload.Objects {
		ok, err := a.backend.Exists(ctx, ref)
		if err != nil {
			return fmt.Errorf("audit %s: %w", ref.Key, err)
		}
		metrics.RecordAuditObject(ok)
		if !ok {
			missing++
			log.Error("committed object missing from storage", zap.String("key", ref.Key))
		}
	}
	log.Info("batch audited", zap.Int("objects", len(payload.Objects)), zap.Int("missing", missing))
	return nil
}
