package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/lamaai/lama-api/internal/userchats"
	"github.com/lamaai/lama-api/pkg/logger"
	"github.com/lamaai/lama-api/pkg/metrics"
)

const (
	ChatIndexReconcileJobName = "chat-index-reconcile"

	defaultReconcileGrace = 10 * time.Minute
	defaultReconcileBatch = 500
)

// chatIndexStore is the slice of the user chat index the sweep needs.
type chatIndexStore interface {
	RecordChat(ctx context.Context, uid string, chatID uuid.UUID, title string) error
	RemoveEntries(ctx context.Context, uid string, chatIDs []uuid.UUID) (int64, error)
	ListUnindexed(ctx context.Context, createdBefore time.Time, limit int) ([]userchats.OrphanChat, error)
	ListDangling(ctx context.Context, limit int) ([]userchats.DanglingEntry, error)
}

type ChatIndexReconcileJobParams struct {
	Logger      *logger.Logger
	Index       chatIndexStore
	Metrics     *metrics.ReconcileMetrics
	GracePeriod time.Duration
	BatchSize   int
	Now         func() time.Time
}

// NewChatIndexReconcileJob builds the sweep that repairs drift between stored
// transcripts and the per-user chat index. Transcripts younger than the grace
// period are skipped so in-flight create requests can finish their index write.
func NewChatIndexReconcileJob(params ChatIndexReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Index == nil {
		return nil, fmt.Errorf("chat index repository required")
	}
	grace := params.GracePeriod
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &chatIndexReconcileJob{
		logg:    params.Logger,
		index:   params.Index,
		metrics: params.Metrics,
		grace:   grace,
		batch:   batch,
		now:     now,
	}, nil
}

type chatIndexReconcileJob struct {
	logg    *logger.Logger
	index   chatIndexStore
	metrics *metrics.ReconcileMetrics
	grace   time.Duration
	batch   int
	now     func() time.Time
}

func (j *chatIndexReconcileJob) Name() string { return ChatIndexReconcileJobName }

func (j *chatIndexReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)

	indexed, indexErr := j.indexOrphans(ctx, cutoff)
	pruned, pruneErr := j.pruneDangling(ctx)

	j.metrics.AddIndexed(indexed)
	j.metrics.AddPruned(pruned)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"chats_indexed":  indexed,
		"entries_pruned": pruned,
	})
	if err := multierr.Combine(indexErr, pruneErr); err != nil {
		return fmt.Errorf("chat index reconcile: %w", err)
	}
	j.logg.Info(logCtx, "chat index reconcile complete")
	return nil
}

func (j *chatIndexReconcileJob) indexOrphans(ctx context.Context, cutoff time.Time) (int, error) {
	orphans, err := j.index.ListUnindexed(ctx, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("list unindexed chats: %w", err)
	}
	var (
		indexed int
		errs    error
	)
	for _, orphan := range orphans {
		title := userchats.TitleFrom(orphan.FirstText())
		if err := j.index.RecordChat(ctx, orphan.OwnerUID, orphan.ChatID, title); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("index chat %s: %w", orphan.ChatID, err))
			continue
		}
		indexed++
	}
	return indexed, errs
}

func (j *chatIndexReconcileJob) pruneDangling(ctx context.Context) (int64, error) {
	dangling, err := j.index.ListDangling(ctx, j.batch)
	if err != nil {
		return 0, fmt.Errorf("list dangling entries: %w", err)
	}

	byUID := make(map[string][]uuid.UUID)
	order := make([]string, 0)
	for _, entry := range dangling {
		if _, seen := byUID[entry.UID]; !seen {
			order = append(order, entry.UID)
		}
		byUID[entry.UID] = append(byUID[entry.UID], entry.ChatID)
	}

	var (
		pruned int64
		errs   error
	)
	for _, uid := range order {
		n, err := j.index.RemoveEntries(ctx, uid, byUID[uid])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("prune entries for %s: %w", uid, err))
			continue
		}
		pruned += n
	}
	return pruned, errs
}
