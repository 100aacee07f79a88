package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/predictos/predictbot/internal/domain"
)

// ArchiveImpl implements domain.Archiver by draining aged decision rows to
// JSONL objects in blob storage, then deleting them from the primary store.
// Deletion only happens after the upload succeeds; a failed upload leaves
// the rows in place for the next run.
type ArchiveImpl struct {
	writer    *Writer
	decisions domain.DecisionStore
}

// NewArchiver creates an ArchiveImpl over the given writer and store.
func NewArchiver(writer *Writer, decisions domain.DecisionStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		decisions: decisions,
	}
}

// ArchiveDecisions queries all decisions before the cutoff, serializes them
// to JSONL, uploads the file at archive/decisions/YYYY-MM.jsonl, and deletes
// the archived rows. The count of archived records is returned.
func (a *ArchiveImpl) ArchiveDecisions(ctx context.Context, before time.Time) (int64, error) {
	records, err := a.decisions.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions query: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions marshal: %w", err)
	}

	path := archivePath("decisions", before)
	if int64(len(buf)) > minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions upload: %w", err)
	}

	deleted, err := a.decisions.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(records)), fmt.Errorf("s3blob: archive decisions prune: %w", err)
	}

	return deleted, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/decisions/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
