package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/nli-search/internal/domain"
)

type RecordRepo struct {
	db *DB
}

func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

const upsertRecord = `
    INSERT INTO nli_records (
        query, id, date, type, record_id, title, source, language, identifier,
        link_to_marc, contributor, creator, subject, access_rights, publisher,
        format, non_standard_date, thumbnail, relation, download, position
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
    ON CONFLICT (query, id) DO UPDATE SET
        date = EXCLUDED.date,
        type = EXCLUDED.type,
        record_id = EXCLUDED.record_id,
        title = EXCLUDED.title,
        source = EXCLUDED.source,
        language = EXCLUDED.language,
        identifier = EXCLUDED.identifier,
        link_to_marc = EXCLUDED.link_to_marc,
        contributor = EXCLUDED.contributor,
        creator = EXCLUDED.creator,
        subject = EXCLUDED.subject,
        access_rights = EXCLUDED.access_rights,
        publisher = EXCLUDED.publisher,
        format = EXCLUDED.format,
        non_standard_date = EXCLUDED.non_standard_date,
        thumbnail = EXCLUDED.thumbnail,
        relation = EXCLUDED.relation,
        download = EXCLUDED.download,
        position = EXCLUDED.position,
        fetched_at = NOW()
`

type positioned struct {
	rec domain.Record
	pos int
}

// archivable drops records without an id and repeats of an id already seen,
// keeping the first one and its position in the result list.
func archivable(records []domain.Record) []positioned {
	seen := make(map[string]struct{}, len(records))
	out := make([]positioned, 0, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, positioned{rec: rec, pos: i})
	}
	return out
}

// SaveRecords upserts records in one transaction. Records without an id
// and repeated ids are skipped, the returned count is the number of
// distinct records written.
func (r *RecordRepo) SaveRecords(ctx context.Context, query string, records []domain.Record) (int, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range archivable(records) {
		rec := p.rec
		batch.Queue(upsertRecord,
			query, rec.ID, rec.Date, rec.Type, rec.RecordID, rec.Title, rec.Source,
			rec.Language, rec.Identifier, rec.LinkToMarc, rec.Contributor, rec.Creator,
			rec.Subject, rec.AccessRights, rec.Publisher, rec.Format, rec.NonStandardDate,
			rec.Thumbnail, rec.Relation, rec.Download, p.pos,
		)
	}

	saved := batch.Len()
	if saved == 0 {
		return 0, nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("save records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return saved, nil
}

func (r *RecordRepo) ListByQuery(ctx context.Context, query string, limit int) ([]domain.Record, error) {
	sql := `
        SELECT id, date, type, record_id, title, source, language, identifier,
               link_to_marc, contributor, creator, subject, access_rights, publisher,
               format, non_standard_date, thumbnail, relation, download
        FROM nli_records
        WHERE query = $1
        ORDER BY position, id
    `
	args := []any{query}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var rec domain.Record
		err := rows.Scan(
			&rec.ID,
			&rec.Date,
			&rec.Type,
			&rec.RecordID,
			&rec.Title,
			&rec.Source,
			&rec.Language,
			&rec.Identifier,
			&rec.LinkToMarc,
			&rec.Contributor,
			&rec.Creator,
			&rec.Subject,
			&rec.AccessRights,
			&rec.Publisher,
			&rec.Format,
			&rec.NonStandardDate,
			&rec.Thumbnail,
			&rec.Relation,
			&rec.Download,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

func (r *RecordRepo) CountByQuery(ctx context.Context, query string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM nli_records WHERE query = $1`, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}
