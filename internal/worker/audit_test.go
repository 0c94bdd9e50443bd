package worker

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/queue"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

type presenceBackend struct {
	present map[string]bool
	err     error
}

func (p *presenceBackend) Write(context.Context, string, io.Reader, int64, string, string) (model.ObjectRef, error) {
	return model.ObjectRef{}, errors.New("not supported")
}

func (p *presenceBackend) Open(context.Context, model.ObjectRef) (io.ReadCloser, error) {
	return nil, errors.New("not supported")
}

func (p *presenceBackend) Remove(context.Context, model.ObjectRef) {}

func (p *presenceBackend) Exists(_ context.Context, ref model.ObjectRef) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	return p.present[ref.Key], nil
}

func (p *presenceBackend) MissingPolicy() storage.MissingPolicy { return storage.FailOnMissing }

func auditTask(t *testing.T, keys ...string) *asynq.Task {
	t.Helper()
	refs := make([]model.ObjectRef, len(keys))
	for i, k := range keys {
		refs[i] = model.ObjectRef{Key: k}
	}
	task, err := queue.NewAuditTask(queue.AuditPayload{EventID: "evt1", Objects: refs})
	require.NoError(t, err)
	return task
}

func TestHandleAuditLogsMissingObjects(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := NewAuditor(&presenceBackend{present: map[string]bool{"evt1/1-aa.jpg": true}}, zap.New(core))

	err := a.HandleAudit(context.Background(), auditTask(t, "evt1/1-aa.jpg", "evt1/2-bb.jpg"))
	require.NoError(t, err)

	missing := logs.FilterMessage("committed object missing from storage").All()
	require.Len(t, missing, 1)
	require.Equal(t, "evt1/2-bb.jpg", missing[0].ContextMap()["key"])
	summary := logs.FilterMessage("batch audited").All()
	require.Len(t, summary, 1)
	require.EqualValues(t, 1, summary[0].ContextMap()["missing"])
}

func TestHandleAuditRetriesOnStorageError(t *testing.T) {
	a := NewAuditor(&presenceBackend{err: errors.New("timeout")}, zap.NewNop())
	err := a.HandleAudit(context.Background(), auditTask(t, "evt1/1-aa.jpg"))
	require.ErrorContains(t, err, "timeout")
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleAuditSkipsRetryOnBadPayload(t *testing.T) {
	a := NewAuditor(&presenceBackend{}, zap.NewNop())
	err := a.HandleAudit(context.Background(), asynq.NewTask(queue.AuditUploadTask, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlerRoutesAuditTask(t *testing.T) {
	a := NewAuditor(&presenceBackend{present: map[string]bool{}}, zap.NewNop())
	require.NoError(t, a.Handler().ProcessTask(context.Background(), auditTask(t)))
}
