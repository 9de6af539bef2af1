package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
)

type IngestJobRepo struct {
	db *sqlx.DB
}

func NewIngestJobRepo(db *sqlx.DB) *IngestJobRepo {
	return &IngestJobRepo{db: db}
}

type jobRow struct {
	ID               string `db:"id"`
	RequestedCount   int    `db:"requested_count"`
	QueuedCount      int    `db:"queued_count"`
	ProcessingCount  int    `db:"processing_count"`
	DoneCount        int    `db:"done_count"`
	FailedCount      int    `db:"failed_count"`
	SummaryLength    string `db:"summary_length"`
	AutoCategory     int    `db:"auto_category"`
	StoreFullContent int    `db:"store_full_content"`
	Ctime            int64  `db:"ctime"`
	Mtime            int64  `db:"mtime"`
}

func (r *jobRow) toModel() *model.IngestJob {
	return &model.IngestJob{
		ID:             r.ID,
		RequestedCount: r.RequestedCount,
		Counts: model.JobCounts{
			Queued:     r.QueuedCount,
			Processing: r.ProcessingCount,
			Done:       r.DoneCount,
			Failed:     r.FailedCount,
		},
		Options: model.IngestOptions{
			SummaryLength:    r.SummaryLength,
			AutoCategory:     r.AutoCategory == 1,
			StoreFullContent: r.StoreFullContent == 1,
		},
		Ctime: r.Ctime,
		Mtime: r.Mtime,
	}
}

var jobColumns = []string{
	"id", "requested_count", "queued_count", "processing_count", "done_count",
	"failed_count", "summary_length", "auto_category", "store_full_content",
	"ctime", "mtime",
}

var jobItemColumns = []string{
	"id", "job_id", "position", "source_url", "status", "note_id",
	"error_code", "error_message", "ctime", "mtime",
}

// CreateWithItems inserts the job header and its items in one transaction so
// a crash never leaves a half-registered job.
func (r *IngestJobRepo) CreateWithItems(ctx context.Context, job *model.IngestJob, items []*model.IngestJobItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	jobData := map[string]interface{}{
		"id":                 job.ID,
		"requested_count":    job.RequestedCount,
		"queued_count":       job.Counts.Queued,
		"processing_count":   job.Counts.Processing,
		"done_count":         job.Counts.Done,
		"failed_count":       job.Counts.Failed,
		"summary_length":     job.Options.SummaryLength,
		"auto_category":      boolToInt(job.Options.AutoCategory),
		"store_full_content": boolToInt(job.Options.StoreFullContent),
		"ctime":              job.Ctime,
		"mtime":              job.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("ingest_jobs", []map[string]interface{}{jobData})
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}

	if len(items) > 0 {
		itemRows := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			itemRows = append(itemRows, map[string]interface{}{
				"id":            item.ID,
				"job_id":        item.JobID,
				"position":      item.Position,
				"source_url":    item.SourceURL,
				"status":        item.Status,
				"note_id":       item.NoteID,
				"error_code":    item.ErrorCode,
				"error_message": item.ErrorMessage,
				"ctime":         item.Ctime,
				"mtime":         item.Mtime,
			})
		}
		sqlStr, args, err = builder.BuildInsert("ingest_job_items", itemRows)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *IngestJobRepo) Get(ctx context.Context, jobID string) (*model.IngestJob, error) {
	where := map[string]interface{}{"id": jobID}
	sqlStr, args, err := builder.BuildSelect("ingest_jobs", where, jobColumns)
	if err != nil {
		return nil, err
	}
	var row jobRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrJobNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *IngestJobRepo) List(ctx context.Context, limit, offset uint) ([]*model.IngestJob, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("ingest_jobs", where, jobColumns)
	if err != nil {
		return nil, err
	}
	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	jobs := make([]*model.IngestJob, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toModel())
	}
	return jobs, nil
}

func (r *IngestJobRepo) ListItems(ctx context.Context, jobID string) ([]*model.IngestJobItem, error) {
	where := map[string]interface{}{
		"job_id":   jobID,
		"_orderby": "position asc",
	}
	sqlStr, args, err := builder.BuildSelect("ingest_job_items", where, jobItemColumns)
	if err != nil {
		return nil, err
	}
	items := make([]*model.IngestJobItem, 0)
	if err := r.db.SelectContext(ctx, &items, sqlStr, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *IngestJobRepo) GetItem(ctx context.Context, itemID string) (*model.IngestJobItem, error) {
	where := map[string]interface{}{"id": itemID}
	sqlStr, args, err := builder.BuildSelect("ingest_job_items", where, jobItemColumns)
	if err != nil {
		return nil, err
	}
	var item model.IngestJobItem
	if err := r.db.GetContext(ctx, &item, sqlStr, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ClaimItem moves one item from queued to processing. The conditional update
// makes the claim atomic: only one worker sees RowsAffected == 1.
func (r *IngestJobRepo) ClaimItem(ctx context.Context, itemID string, mtime int64) (bool, error) {
	const query = `
		UPDATE ingest_job_items
		SET status = ?, mtime = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, query, model.ItemStatusProcessing, mtime, itemID, model.ItemStatusQueued)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *IngestJobRepo) FinishItem(ctx context.Context, itemID, status, noteID, errorCode, errorMessage string, mtime int64) error {
	const query = `
		UPDATE ingest_job_items
		SET status = ?, note_id = ?, error_code = ?, error_message = ?, mtime = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, status, noteID, errorCode, errorMessage, mtime, itemID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// RecalcCounts rebuilds the job counters from its items. Recomputing from the
// item table after every transition keeps the counters consistent without
// read-modify-write races on the header row.
func (r *IngestJobRepo) RecalcCounts(ctx context.Context, jobID string, mtime int64) (*model.JobCounts, error) {
	const aggregate = `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0) AS queued,
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0) AS processing,
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0) AS done,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed
		FROM ingest_job_items
		WHERE job_id = ?
	`
	var counts model.JobCounts
	if err := r.db.GetContext(ctx, &counts, aggregate, jobID); err != nil {
		return nil, err
	}
	const update = `
		UPDATE ingest_jobs
		SET queued_count = ?, processing_count = ?, done_count = ?, failed_count = ?, mtime = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, update, counts.Queued, counts.Processing, counts.Done, counts.Failed, mtime, jobID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, appErr.ErrJobNotFound
	}
	return &counts, nil
}

// ResetFailedItems re-queues the failed items of a job for a retry round and
// returns the re-queued item ids in position order. The failed ids are
// selected first and then updated by id inside one transaction, so items that
// were never failed are never touched or reported.
func (r *IngestJobRepo) ResetFailedItems(ctx context.Context, jobID string, mtime int64) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const selectQuery = `
		SELECT id FROM ingest_job_items
		WHERE job_id = ? AND status = ?
		ORDER BY position ASC
	`
	ids := make([]string, 0)
	if err := tx.SelectContext(ctx, &ids, selectQuery, jobID, model.ItemStatusFailed); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, tx.Commit()
	}
	const updateQuery = `
		UPDATE ingest_job_items
		SET status = ?, note_id = '', error_code = '', error_message = '', mtime = ?
		WHERE id IN (?)
	`
	query, args, err := sqlx.In(updateQuery, model.ItemStatusQueued, mtime, ids)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
