package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/dbutil"
)

const memoryTable = "memories"

type MemoryRepo struct {
	db *sqlx.DB
}

func NewMemoryRepo(db *sqlx.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

type memoryRow struct {
	ID         string          `db:"id"`
	Collection string          `db:"collection"`
	Content    string          `db:"content"`
	Source     string          `db:"source"`
	Metadata   []byte          `db:"metadata"`
	Embedding  pgvector.Vector `db:"embedding"`
	Ctime      int64           `db:"ctime"`
	Distance   float64         `db:"distance"`
}

func (r memoryRow) record() (model.MemoryRecord, error) {
	rec := model.MemoryRecord{
		ID:         r.ID,
		Collection: r.Collection,
		Content:    r.Content,
		Source:     r.Source,
		Embedding:  r.Embedding.Slice(),
		Ctime:      r.Ctime,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &rec.Metadata); err != nil {
			return rec, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
		}
	}
	return rec, nil
}

func (r *MemoryRepo) SaveBatch(ctx context.Context, records []*model.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		meta := rec.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		blob, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode metadata of %s: %w", rec.ID, err)
		}
		rows = append(rows, map[string]interface{}{
			"id":         rec.ID,
			"collection": rec.Collection,
			"content":    rec.Content,
			"source":     rec.Source,
			"metadata":   string(blob),
			"embedding":  pgvector.NewVector(rec.Embedding),
			"ctime":      rec.Ctime,
		})
	}
	sqlStr, args, err := dbutil.Insert(memoryTable, rows)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Search returns the topK records nearest to vec by cosine distance.
func (r *MemoryRepo) Search(ctx context.Context, collection string, vec []float32, topK int) ([]model.ScoredRecord, error) {
	const query = `
		SELECT id, collection, content, source, metadata, embedding, ctime, embedding <=> ? AS distance
		FROM memories
		WHERE collection = ?
		ORDER BY embedding <=> ?
		LIMIT ?
	`
	q := pgvector.NewVector(vec)
	sqlStr, args := dbutil.Finalize(query, []interface{}{q, collection, q, topK})
	var rows []memoryRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	out := make([]model.ScoredRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, model.ScoredRecord{MemoryRecord: rec, Distance: row.Distance})
	}
	return out, nil
}

func (r *MemoryRepo) List(ctx context.Context, collection string, offset, limit uint) ([]model.MemoryRecord, error) {
	sqlStr, args, err := dbutil.Select(memoryTable, map[string]interface{}{
		"collection": collection,
		"_orderby":   "ctime asc",
		"_limit":     []uint{offset, limit},
	}, []string{"id", "collection", "content", "source", "metadata", "embedding", "ctime"})
	if err != nil {
		return nil, err
	}
	var rows []memoryRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	out := make([]model.MemoryRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, collection, id string) (bool, error) {
	sqlStr, args, err := dbutil.Delete(memoryTable, map[string]interface{}{"collection": collection, "id": id})
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MemoryRepo) DeleteCollection(ctx context.Context, collection string) (int64, error) {
	sqlStr, args, err := dbutil.Delete(memoryTable, map[string]interface{}{"collection": collection})
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *MemoryRepo) Count(ctx context.Context, collection string) (int, error) {
	sqlStr, args, err := dbutil.Select(memoryTable, map[string]interface{}{"collection": collection}, []string{"COUNT(*) AS total"})
	if err != nil {
		return 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, sqlStr, args...); err != nil {
		return 0, err
	}
	return total, nil
}
