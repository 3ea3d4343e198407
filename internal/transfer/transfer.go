package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mpol-dev/visread/internal/export"
)

// Client pushes and pulls export runs against one bucket. Runs live under
// <prefix>/runs/<run_id>/, and the manifest object is always written last
// so a listed run is a complete run.
type Client struct {
	store  ObjectStore
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewClient wraps store for runs in bucket. prefix may be empty.
func NewClient(store ObjectStore, bucket, prefix string, log zerolog.Logger) *Client {
	return &Client{store: store, bucket: bucket, prefix: prefix, log: log}
}

// RunInfo summarizes one run found in the store.
type RunInfo struct {
	RunID     string
	Table     string
	Telescope string
	CreatedAt time.Time
	Files     int
}

// Ping checks reachability of the underlying store.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Client) runKey(runID string, parts ...string) string {
	all := []string{"runs", runID}
	if c.prefix != "" {
		all = append([]string{c.prefix}, all...)
	}
	return path.Join(append(all, parts...)...)
}

// Push uploads the export directory dir. The local files are checked
// against the manifest before anything leaves the machine, and the
// manifest object goes up only after every data object landed.
func (c *Client) Push(ctx context.Context, dir string) (*export.Manifest, error) {
	man, err := export.LoadManifest(dir)
	if err != nil {
		return nil, wrapError(CodeRunIncomplete, false, fmt.Errorf("%s is not a finished export: %w", dir, err))
	}
	if err := c.store.EnsureBucket(ctx, c.bucket); err != nil {
		return nil, err
	}

	for _, f := range man.Files {
		raw, err := os.ReadFile(filepath.Join(dir, f.Name))
		if err != nil {
			return nil, wrapError(CodeRunIncomplete, false, err)
		}
		sum := sha256.Sum256(raw)
		if hex.EncodeToString(sum[:]) != f.SHA256 {
			return nil, wrapError(CodeRunCorrupt, false, fmt.Errorf("%s does not match its manifest checksum", f.Name))
		}
		key := c.runKey(man.RunID, f.Name)
		// A matching object from an interrupted push does not need to go
		// up again. The manifest was never written, so the run was not
		// visible yet.
		if size, err := c.store.StatObject(ctx, c.bucket, key); err == nil && size == int64(len(raw)) {
			c.log.Debug().Str("key", key).Msg("transfer: already uploaded")
			continue
		}
		if err := c.store.PutObject(ctx, c.bucket, key, raw); err != nil {
			return nil, err
		}
		c.log.Debug().Str("key", key).Int("bytes", len(raw)).Msg("transfer: uploaded")
	}

	manRaw, err := os.ReadFile(filepath.Join(dir, export.ManifestName))
	if err != nil {
		return nil, wrapError(CodeRunIncomplete, false, err)
	}
	if err := c.store.PutObject(ctx, c.bucket, c.runKey(man.RunID, export.ManifestName), manRaw); err != nil {
		return nil, err
	}
	c.log.Info().
		Str("run_id", man.RunID).
		Str("bucket", c.bucket).
		Int("files", len(man.Files)).
		Msg("transfer: pushed run")
	return man, nil
}

// Pull downloads a run into dir, verifying every file against the
// manifest checksums. The local manifest is written last, mirroring the
// completion-marker convention of the exporter.
func (c *Client) Pull(ctx context.Context, runID, dir string) (*export.Manifest, error) {
	if runID == "" {
		return nil, wrapError(CodeObjectNotFound, false, fmt.Errorf("run id is required"))
	}
	manRaw, err := c.store.GetObject(ctx, c.bucket, c.runKey(runID, export.ManifestName))
	if err != nil {
		return nil, err
	}
	man := &export.Manifest{}
	if err := json.Unmarshal(manRaw, man); err != nil {
		return nil, wrapError(CodeRunCorrupt, false, fmt.Errorf("run %s manifest: %w", runID, err))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapError(CodeTransferFailed, false, err)
	}

	for _, f := range man.Files {
		raw, err := c.store.GetObject(ctx, c.bucket, c.runKey(runID, f.Name))
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(raw)
		if hex.EncodeToString(sum[:]) != f.SHA256 {
			return nil, wrapError(CodeRunCorrupt, false, fmt.Errorf("%s does not match its manifest checksum", f.Name))
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), raw, 0o644); err != nil {
			return nil, wrapError(CodeTransferFailed, false, err)
		}
		c.log.Debug().Str("file", f.Name).Int("bytes", len(raw)).Msg("transfer: downloaded")
	}

	if err := os.WriteFile(filepath.Join(dir, export.ManifestName), manRaw, 0o644); err != nil {
		return nil, wrapError(CodeTransferFailed, false, err)
	}
	c.log.Info().
		Str("run_id", runID).
		Str("dir", dir).
		Int("files", len(man.Files)).
		Msg("transfer: pulled run")
	return man, nil
}

// Remove deletes a run from the store. The manifest object goes first so
// the run stops listing as complete before any data disappears.
func (c *Client) Remove(ctx context.Context, runID string) error {
	if runID == "" {
		return wrapError(CodeObjectNotFound, false, fmt.Errorf("run id is required"))
	}
	keys, err := c.store.ListPrefix(ctx, c.bucket, c.runKey(runID)+"/")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return wrapError(CodeObjectNotFound, false, fmt.Errorf("no run %s in bucket %s", runID, c.bucket))
	}
	if err := c.store.RemoveObject(ctx, c.bucket, c.runKey(runID, export.ManifestName)); err != nil {
		return err
	}
	for _, key := range keys {
		if path.Base(key) == export.ManifestName {
			continue
		}
		if err := c.store.RemoveObject(ctx, c.bucket, key); err != nil {
			return err
		}
	}
	c.log.Info().Str("run_id", runID).Int("objects", len(keys)).Msg("transfer: removed run")
	return nil
}

// List returns every complete run in the bucket, newest first. Runs whose
// manifest cannot be read are logged and skipped.
func (c *Client) List(ctx context.Context) ([]RunInfo, error) {
	prefix := "runs/"
	if c.prefix != "" {
		prefix = path.Join(c.prefix, "runs") + "/"
	}
	keys, err := c.store.ListPrefix(ctx, c.bucket, prefix)
	if err != nil {
		return nil, err
	}

	var runs []RunInfo
	for _, key := range keys {
		if path.Base(key) != export.ManifestName {
			continue
		}
		raw, err := c.store.GetObject(ctx, c.bucket, key)
		if err != nil {
			c.log.Warn().Str("key", key).Err(err).Msg("transfer: unreadable manifest")
			continue
		}
		man := &export.Manifest{}
		if err := json.Unmarshal(raw, man); err != nil || man.RunID == "" {
			c.log.Warn().Str("key", key).Msg("transfer: malformed manifest")
			continue
		}
		runs = append(runs, RunInfo{
			RunID:     man.RunID,
			Table:     man.Table,
			Telescope: man.Telescope,
			CreatedAt: man.CreatedAt,
			Files:     len(man.Files),
		})
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}
