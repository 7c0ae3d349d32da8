package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fagemx/edda/internal/eventmodel"
)

// InlineThreshold is the default payload-field size above which Append
// hoists the field to the blob store, per spec.md §3.1 ("default 16 KiB").
const InlineThreshold = 16 * 1024

// hoistBlobsTx inspects top-level string fields of payload; any field whose
// serialized size exceeds InlineThreshold is written to the blob store and
// replaced in the returned payload with a blob:sha256:<hex> reference. Blob
// writes happen before the caller inserts the event row, both inside the
// same transaction — the blob row commits or rolls back with the event.
func (l *Ledger) hoistBlobsTx(ctx context.Context, tx *sql.Tx, payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		s, ok := v.(string)
		if !ok || len(s) <= InlineThreshold {
			out[k] = v
			continue
		}
		ref, err := l.storeBlobTx(ctx, tx, []byte(s), "")
		if err != nil {
			return nil, fmt.Errorf("hoist field %q: %w", k, err)
		}
		out[k+"_ref"] = ref
	}
	return out, nil
}

// storeBlobTx writes content to the blob directory (temp-then-rename,
// per SPEC_FULL.md §4.1.b) and records a row in blobs, inside tx so it
// commits atomically with the event that references it.
func (l *Ledger) storeBlobTx(ctx context.Context, tx *sql.Tx, content []byte, classification string) (string, error) {
	sum := sha256.Sum256(content)
	hexDigest := hex.EncodeToString(sum[:])
	ref := eventmodel.BlobRef(eventmodel.BlobAlgoSHA256, hexDigest)

	if err := l.writeBlobFile(hexDigest, content); err != nil {
		return "", err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO blobs (hash, algo, byte_length, classification) VALUES (?, ?, ?, ?)
		ON CONFLICT (hash) DO NOTHING
	`, hexDigest, eventmodel.BlobAlgoSHA256, len(content), nullableString(classification))
	if err != nil {
		return "", wrapDBError("insert blob row", err)
	}
	return ref, nil
}

// StoreBlob explicitly stores an artifact outside of any event payload
// (spec.md §3.1: "or when a command explicitly stores artifacts"). Unlike
// hoisting, the resulting blob starts with zero references; a caller that
// wants it retained by GC must also record a referencing event or Pin it.
func (l *Ledger) StoreBlob(ctx context.Context, content []byte, classification string) (string, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin store blob tx: %w", err)
	}
	defer tx.Rollback()

	ref, err := l.storeBlobTx(ctx, tx, content, classification)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit store blob: %w", err)
	}
	return ref, nil
}

// writeBlobFile writes the blob's bytes at <blobDir>/<aa>/<hash> via
// temp-file-then-rename, matching the teacher's atomic-replace convention
// (internal/lockfile, blob/cache writers).
func (l *Ledger) writeBlobFile(hexDigest string, content []byte) error {
	if len(hexDigest) < 2 {
		return fmt.Errorf("invalid blob digest %q", hexDigest)
	}
	shardDir := filepath.Join(l.BlobDir(), hexDigest[:2])
	if err := os.MkdirAll(shardDir, 0o755); err != nil {
		return fmt.Errorf("create blob shard dir: %w", err)
	}
	finalPath := filepath.Join(shardDir, hexDigest)
	if _, err := os.Stat(finalPath); err == nil {
		return nil // content-addressed: identical content already stored
	}

	tmp, err := os.CreateTemp(shardDir, hexDigest+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp blob file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp blob file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp blob file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename blob file: %w", err)
	}
	return nil
}

// bumpRefCountsTx increments referenced_by for every blob ref named in the
// event's refs map or payload *_ref fields (I4 / GC's referenced-set input).
func (l *Ledger) bumpRefCountsTx(ctx context.Context, tx *sql.Tx, ev eventmodel.Event) error {
	for _, ref := range collectBlobRefs(ev) {
		_, hexDigest, ok := eventmodel.ParseBlobRef(ref)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE blobs SET referenced_by = referenced_by + 1 WHERE hash = ?`, hexDigest); err != nil {
			return wrapDBError("bump blob ref count", err)
		}
	}
	return nil
}

// collectBlobRefs gathers every blob:<algo>:<hex> value from an event's refs
// map and any payload field whose key ends in _ref.
func collectBlobRefs(ev eventmodel.Event) []string {
	var out []string
	for _, v := range ev.Refs {
		if eventmodel.IsBlobRef(v) {
			out = append(out, v)
		}
	}
	for k, v := range ev.Payload {
		if !strings.HasSuffix(k, "_ref") {
			continue
		}
		if s, ok := v.(string); ok && eventmodel.IsBlobRef(s) {
			out = append(out, s)
		}
	}
	return out
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// BlobInfo describes one stored blob for GC and doctor reporting.
type BlobInfo struct {
	Hash           string
	Algo           string
	ByteLength     int64
	Classification string
	Pinned         bool
	Tombstoned     bool
	ReferencedBy   int
	CreatedAt      time.Time
}

// ReadBlob returns the content of a non-tombstoned blob.
func (l *Ledger) ReadBlob(ctx context.Context, ref string) ([]byte, error) {
	_, hexDigest, ok := eventmodel.ParseBlobRef(ref)
	if !ok {
		return nil, fmt.Errorf("malformed blob ref %q", ref)
	}
	var tombstoned bool
	err := l.db.QueryRowContext(ctx, `SELECT tombstoned FROM blobs WHERE hash = ?`, hexDigest).Scan(&tombstoned)
	if err != nil {
		return nil, wrapDBError("lookup blob", err)
	}
	if tombstoned {
		return nil, ErrBlobNotFound
	}
	path := filepath.Join(l.BlobDir(), hexDigest[:2], hexDigest)
	data, err := os.ReadFile(path) // #nosec G304 - path built from a validated content hash
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read blob file: %w", err)
	}
	return data, nil
}

// ListBlobs returns every blob row, for GC sweeps and doctor reports.
func (l *Ledger) ListBlobs(ctx context.Context) ([]BlobInfo, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT hash, algo, byte_length, COALESCE(classification, ''), pinned, tombstoned, referenced_by, created_at
		FROM blobs ORDER BY hash
	`)
	if err != nil {
		return nil, wrapDBError("list blobs", err)
	}
	defer rows.Close()

	var out []BlobInfo
	for rows.Next() {
		var bi BlobInfo
		if err := rows.Scan(&bi.Hash, &bi.Algo, &bi.ByteLength, &bi.Classification, &bi.Pinned, &bi.Tombstoned, &bi.ReferencedBy, &bi.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blob row: %w", err)
		}
		out = append(out, bi)
	}
	return out, wrapDBError("iterate blob rows", rows.Err())
}

// TombstoneBlob marks a blob as tombstoned (retaining its metadata row per
// spec.md §3.1) and removes its on-disk content.
func (l *Ledger) TombstoneBlob(ctx context.Context, hexDigest string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE blobs SET tombstoned = 1 WHERE hash = ?`, hexDigest)
	if err != nil {
		return wrapDBError("tombstone blob", err)
	}
	path := filepath.Join(l.BlobDir(), hexDigest[:2], hexDigest)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove tombstoned blob file: %w", err)
	}
	return nil
}

// PinBlob marks a blob as pinned, excluding it from GC regardless of
// reference count.
func (l *Ledger) PinBlob(ctx context.Context, hexDigest string, pinned bool) error {
	_, err := l.db.ExecContext(ctx, `UPDATE blobs SET pinned = ? WHERE hash = ?`, pinned, hexDigest)
	return wrapDBError("set blob pin", err)
}
