package storage

import (
	"context"
	"fmt"

	"docqa/internal/models"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) UpsertDocument(ctx context.Context, d models.Document) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (document_id, name, type, size_bytes, status, fail_reason, content,
                       page_count, word_count, language, author, title, uploaded_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7, $8, $9, NULLIF($10,''), NULLIF($11,''), NULLIF($12,''), NOW())
ON CONFLICT (document_id)
DO UPDATE SET
  name = EXCLUDED.name,
  type = EXCLUDED.type,
  size_bytes = EXCLUDED.size_bytes,
  status = EXCLUDED.status,
  fail_reason = EXCLUDED.fail_reason,
  content = EXCLUDED.content,
  page_count = EXCLUDED.page_count,
  word_count = EXCLUDED.word_count,
  language = COALESCE(EXCLUDED.language, documents.language),
  author = COALESCE(EXCLUDED.author, documents.author),
  title = COALESCE(EXCLUDED.title, documents.title)`,
		d.DocumentID, d.Name, d.Type, d.SizeBytes, d.Status, d.FailReason, d.Content,
		d.Metadata.PageCount, d.Metadata.WordCount, d.Metadata.Language, d.Metadata.Author, d.Metadata.Title,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// UpdateDocumentStatus moves a document through its lifecycle. processed_at
// is stamped once, when the document first reaches processed.
func (r *DocumentRepo) UpdateDocumentStatus(ctx context.Context, documentID, status, failReason string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE documents
SET status=$2,
    fail_reason=NULLIF($3,''),
    processed_at = CASE WHEN $2='processed' AND processed_at IS NULL THEN NOW() ELSE processed_at END
WHERE document_id=$1`, documentID, status, failReason)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// UpdateDocumentMetadata persists heuristics extracted during processing
// without touching content or lifecycle fields.
func (r *DocumentRepo) UpdateDocumentMetadata(ctx context.Context, documentID string, m models.DocumentMetadata) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE documents
SET page_count=$2,
    word_count=$3,
    language=COALESCE(NULLIF($4,''), language),
    author=COALESCE(NULLIF($5,''), author),
    title=COALESCE(NULLIF($6,''), title)
WHERE document_id=$1`, documentID, m.PageCount, m.WordCount, m.Language, m.Author, m.Title)
	if err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	return nil
}

const documentColumns = `
document_id, name, type, size_bytes, status, COALESCE(fail_reason,''), content,
page_count, word_count, COALESCE(language,''), COALESCE(author,''), COALESCE(title,''),
uploaded_at, processed_at`

func scanDocument(row interface{ Scan(...any) error }) (models.Document, error) {
	var d models.Document
	err := row.Scan(&d.DocumentID, &d.Name, &d.Type, &d.SizeBytes, &d.Status, &d.FailReason, &d.Content,
		&d.Metadata.PageCount, &d.Metadata.WordCount, &d.Metadata.Language, &d.Metadata.Author, &d.Metadata.Title,
		&d.UploadedAt, &d.ProcessedAt)
	return d, err
}

func (r *DocumentRepo) GetDocument(ctx context.Context, documentID string) (models.Document, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE document_id=$1`, documentID)
	d, err := scanDocument(row)
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepo) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepo) ListDocumentsByIDs(ctx context.Context, documentIDs []string) ([]models.Document, error) {
	if len(documentIDs) == 0 {
		return []models.Document{}, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE document_id = ANY($1)
ORDER BY uploaded_at DESC`, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("list documents by ids: %w", err)
	}
	defer rows.Close()
	out := make([]models.Document, 0, len(documentIDs))
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document by id: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents by ids: %w", err)
	}
	return out, nil
}

// ListPendingDocuments returns documents stuck before the processed state,
// used by the reprocess workflow to retry failures.
func (r *DocumentRepo) ListPendingDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE status IN ('uploading', 'failed')
ORDER BY uploaded_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}
	defer rows.Close()
	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending documents: %w", err)
	}
	return out, nil
}
