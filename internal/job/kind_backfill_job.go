package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/linknote/internal/service"
)

// KindBackfillJob classifies notes that predate kind derivation. It drains
// in batches so one run never holds the writer for long.
type KindBackfillJob struct {
	notes     *service.NoteService
	batchSize uint
}

func NewKindBackfillJob(notes *service.NoteService, batchSize uint) *KindBackfillJob {
	if batchSize == 0 {
		batchSize = 200
	}
	return &KindBackfillJob{notes: notes, batchSize: batchSize}
}

func (j *KindBackfillJob) Name() string {
	return "kind_backfill"
}

func (j *KindBackfillJob) Run(ctx context.Context) error {
	scanned, updated, err := j.notes.BackfillKinds(ctx, j.batchSize, 0)
	if err != nil {
		return err
	}
	if updated > 0 {
		logutil.GetLogger(ctx).Info("kind backfill round complete",
			zap.Int("scanned", scanned), zap.Int("updated", updated))
	}
	return nil
}
