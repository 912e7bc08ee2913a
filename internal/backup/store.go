package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
)

const (
	// keyTimeFormat keeps keys sortable: UTC timestamps formatted this
	// way compare lexicographically in chronological order.
	keyTimeFormat = "20060102T150405Z"

	snapshotKeyPrefix = "kb-"
	snapshotKeySuffix = ".db.zst"

	contentTypeZstd = "application/zstd"
)

// DefaultKeep is how many snapshots Prune retains when the caller has no
// stronger opinion.
const DefaultKeep = 10

// Store manages timestamped knowledge base snapshots in an S3-compatible
// bucket.
type Store struct {
	client  *Client
	prefix  string
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewStore creates a snapshot store. All object keys live under prefix.
// Metrics may be nil.
func NewStore(client *Client, prefix string, log *logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		client:  client,
		prefix:  prefix,
		log:     log,
		metrics: m,
	}
}

// Upload takes a consistent snapshot of the database, compresses it and
// uploads it under a fresh timestamped key. Returns the object key.
func (s *Store) Upload(ctx context.Context, db *kb.DB) (string, error) {
	tempDir, err := os.MkdirTemp("", "kb-snapshot-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	snapshotPath := filepath.Join(tempDir, "kb.db")
	if err := db.Snapshot(ctx, snapshotPath); err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	compressedPath := snapshotPath + ".zst"
	if err := CompressFile(snapshotPath, compressedPath); err != nil {
		return "", fmt.Errorf("compress database: %w", err)
	}

	compressed, err := os.Open(compressedPath)
	if err != nil {
		return "", fmt.Errorf("open compressed file: %w", err)
	}
	defer compressed.Close()

	info, err := compressed.Stat()
	if err != nil {
		return "", fmt.Errorf("stat compressed file: %w", err)
	}

	key := s.keyFor(time.Now())
	etag, err := s.client.Upload(ctx, key, compressed, contentTypeZstd)
	if err != nil {
		return "", err
	}

	s.log.Info("Snapshot uploaded",
		"key", key,
		"etag", etag,
		"size_bytes", info.Size())
	return key, nil
}

// Latest returns the key of the most recent snapshot.
// Returns ErrNotFound when the bucket holds no snapshots.
func (s *Store) Latest(ctx context.Context) (string, error) {
	keys, err := s.client.List(ctx, s.listPrefix())
	if err != nil {
		return "", fmt.Errorf("list snapshots: %w", err)
	}
	key := newestKey(keys)
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// Restore downloads the latest snapshot and decompresses it to destPath.
// Returns the key that was restored, or ErrNotFound when the bucket holds
// no snapshots.
func (s *Store) Restore(ctx context.Context, destPath string) (string, error) {
	key, err := s.Latest(ctx)
	if err != nil {
		return "", err
	}

	body, err := s.client.Download(ctx, key)
	if err != nil {
		return "", fmt.Errorf("download snapshot: %w", err)
	}
	defer body.Close()

	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create destination directory: %w", err)
		}
	}

	// Decompress next to the destination and rename, so an interrupted
	// download never leaves a truncated database at destPath.
	partialPath := destPath + ".partial"
	if err := DecompressStream(body, partialPath); err != nil {
		os.Remove(partialPath)
		return "", fmt.Errorf("decompress snapshot: %w", err)
	}
	if err := os.Rename(partialPath, destPath); err != nil {
		os.Remove(partialPath)
		return "", fmt.Errorf("replace database file: %w", err)
	}

	s.log.Info("Snapshot restored", "key", key, "path", destPath)
	return key, nil
}

// Prune deletes all but the keep newest snapshots.
// Returns the number of objects removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	keys, err := s.client.List(ctx, s.listPrefix())
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	removed := 0
	for _, key := range staleKeys(keys, keep) {
		if err := s.client.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("delete snapshot %q: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

// Run uploads snapshots on a fixed schedule until ctx is cancelled.
// The first upload waits initialDelay so a restart loop does not flood
// the bucket with near-identical snapshots.
func (s *Store) Run(ctx context.Context, db *kb.DB, initialDelay, interval time.Duration, keep int) {
	s.log.Info("Snapshot job started",
		"initial_delay", initialDelay,
		"interval", interval,
		"keep", keep)

	select {
	case <-ctx.Done():
		s.log.Info("Snapshot job stopped")
		return
	case <-time.After(initialDelay):
	}

	s.uploadAndPrune(ctx, db, keep)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Snapshot job stopped")
			return
		case <-ticker.C:
			s.uploadAndPrune(ctx, db, keep)
		}
	}
}

func (s *Store) uploadAndPrune(ctx context.Context, db *kb.DB, keep int) {
	if _, err := s.Upload(ctx, db); err != nil {
		s.log.Error("Snapshot upload failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordSnapshotUpload("error")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSnapshotUpload("success")
	}

	removed, err := s.Prune(ctx, keep)
	if err != nil {
		s.log.Warn("Snapshot prune failed", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("Old snapshots pruned", "removed", removed, "keep", keep)
	}
}

func (s *Store) keyFor(ts time.Time) string {
	name := snapshotKeyPrefix + ts.UTC().Format(keyTimeFormat) + snapshotKeySuffix
	return path.Join(s.prefix, name)
}

func (s *Store) listPrefix() string {
	return path.Join(s.prefix, snapshotKeyPrefix)
}

func newestKey(keys []string) string {
	newest := ""
	for _, key := range keys {
		if key > newest {
			newest = key
		}
	}
	return newest
}

// staleKeys returns the keys to delete so only the keep newest remain,
// oldest first.
func staleKeys(keys []string, keep int) []string {
	if keep < 0 {
		keep = 0
	}
	if len(keys) <= keep {
		return nil
	}
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	return sorted[:len(sorted)-keep]
}
