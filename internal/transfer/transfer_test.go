package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mpol-dev/visread/internal/backend/sim"
	"github.com/mpol-dev/visread/internal/export"
)

func makeExport(t *testing.T, runID string) (string, *export.Manifest) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.NumAntennas = 3
	cfg.NumIntegrations = 3
	cfg.Channels = []int{4}
	tbl, err := sim.New(cfg)
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}
	defer tbl.Close()

	dir := t.TempDir()
	man, err := export.New(zerolog.Nop()).Run(context.Background(), tbl, export.Options{Dir: dir, RunID: runID})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	return dir, man
}

func newClient(t *testing.T) (*Client, *LocalStore) {
	t.Helper()
	store := NewLocalStore(t.TempDir())
	return NewClient(store, "visread", "archive", zerolog.Nop()), store
}

func TestPushPullRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir, man := makeExport(t, "run-rt")
	c, _ := newClient(t)

	pushed, err := c.Push(ctx, dir)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if pushed.RunID != "run-rt" {
		t.Fatalf("run id: %q", pushed.RunID)
	}

	dst := filepath.Join(t.TempDir(), "pulled")
	pulled, err := c.Pull(ctx, "run-rt", dst)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if pulled.RunID != man.RunID || len(pulled.Files) != len(man.Files) {
		t.Fatalf("pulled manifest mismatch: %+v", pulled)
	}
	for _, f := range man.Files {
		want, err := os.ReadFile(filepath.Join(dir, f.Name))
		if err != nil {
			t.Fatalf("read source %s: %v", f.Name, err)
		}
		got, err := os.ReadFile(filepath.Join(dst, f.Name))
		if err != nil {
			t.Fatalf("read pulled %s: %v", f.Name, err)
		}
		if string(got) != string(want) {
			t.Fatalf("%s differs after round trip", f.Name)
		}
	}
	if _, err := export.LoadManifest(dst); err != nil {
		t.Fatalf("pulled dir has no usable manifest: %v", err)
	}
}

func TestPushRejectsIncompleteExport(t *testing.T) {
	c, _ := newClient(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ddid00.npz"), []byte("orphan"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Push(context.Background(), dir); !IsCode(err, CodeRunIncomplete) {
		t.Fatalf("push without manifest: %v", err)
	}
}

func TestPushRejectsCorruptFile(t *testing.T) {
	dir, man := makeExport(t, "run-bad")
	c, _ := newClient(t)

	path := filepath.Join(dir, man.Files[0].Name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)/3] ^= 0x01
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Push(context.Background(), dir); !IsCode(err, CodeRunCorrupt) {
		t.Fatalf("push with corrupt file: %v", err)
	}
}

func TestPullVerifiesChecksums(t *testing.T) {
	ctx := context.Background()
	dir, man := makeExport(t, "run-tamper")
	c, store := newClient(t)
	if _, err := c.Push(ctx, dir); err != nil {
		t.Fatalf("push: %v", err)
	}

	key := c.runKey("run-tamper", man.Files[0].Name)
	objPath := filepath.Join(store.bucketPath("visread"), filepath.FromSlash(key))
	raw, err := os.ReadFile(objPath)
	if err != nil {
		t.Fatalf("read stored object: %v", err)
	}
	raw[len(raw)/2] ^= 0xff
	if err := os.WriteFile(objPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Pull(ctx, "run-tamper", filepath.Join(t.TempDir(), "out")); !IsCode(err, CodeRunCorrupt) {
		t.Fatalf("pull of tampered run: %v", err)
	}
}

func TestPullUnknownRun(t *testing.T) {
	c, _ := newClient(t)
	if _, err := c.Pull(context.Background(), "no-such-run", t.TempDir()); !IsCode(err, CodeObjectNotFound) {
		t.Fatalf("pull unknown run: %v", err)
	}
	if _, err := c.Pull(context.Background(), "", t.TempDir()); !IsCode(err, CodeObjectNotFound) {
		t.Fatalf("pull empty run id: %v", err)
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	c, store := newClient(t)

	dirA, _ := makeExport(t, "run-a")
	dirB, _ := makeExport(t, "run-b")
	if _, err := c.Push(ctx, dirA); err != nil {
		t.Fatalf("push a: %v", err)
	}
	if _, err := c.Push(ctx, dirB); err != nil {
		t.Fatalf("push b: %v", err)
	}
	// Junk outside the runs prefix must not show up.
	if err := store.PutObject(ctx, "visread", "scratch/notes.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}

	runs, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs: %+v", runs)
	}
	seen := map[string]RunInfo{}
	for _, r := range runs {
		seen[r.RunID] = r
	}
	if seen["run-a"].Files == 0 || seen["run-b"].Table == "" {
		t.Fatalf("run info incomplete: %+v", runs)
	}
}

func TestPushResumesInterruptedUpload(t *testing.T) {
	ctx := context.Background()
	dir, man := makeExport(t, "run-resume")
	c, store := newClient(t)

	// Stage one data object by hand, as a crashed push would leave it.
	raw, err := os.ReadFile(filepath.Join(dir, man.Files[0].Name))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureBucket(ctx, "visread"); err != nil {
		t.Fatal(err)
	}
	key := c.runKey("run-resume", man.Files[0].Name)
	if err := store.PutObject(ctx, "visread", key, raw); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Push(ctx, dir); err != nil {
		t.Fatalf("resumed push: %v", err)
	}
	if _, err := c.Pull(ctx, "run-resume", filepath.Join(t.TempDir(), "out")); err != nil {
		t.Fatalf("pull after resume: %v", err)
	}
}

func TestRemoveRun(t *testing.T) {
	ctx := context.Background()
	dir, _ := makeExport(t, "run-rm")
	c, store := newClient(t)
	if _, err := c.Push(ctx, dir); err != nil {
		t.Fatalf("push: %v", err)
	}

	if err := c.Remove(ctx, "run-rm"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	runs, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("run still listed after remove: %+v", runs)
	}
	keys, err := store.ListPrefix(ctx, "visread", c.runKey("run-rm")+"/")
	if err != nil {
		t.Fatalf("list prefix: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("objects left behind: %v", keys)
	}

	if err := c.Remove(ctx, "run-rm"); !IsCode(err, CodeObjectNotFound) {
		t.Fatalf("remove of removed run: %v", err)
	}
	if err := c.Remove(ctx, ""); !IsCode(err, CodeObjectNotFound) {
		t.Fatalf("remove empty run id: %v", err)
	}
}

func TestLocalStoreSemantics(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	if ok, _ := store.BucketExists(ctx, "b"); ok {
		t.Fatal("bucket exists before creation")
	}
	if err := store.EnsureBucket(ctx, "b"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if ok, _ := store.BucketExists(ctx, "b"); !ok {
		t.Fatal("bucket missing after EnsureBucket")
	}
	if err := store.PutObject(ctx, "b", "a/b/c.bin", []byte{1, 2, 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.GetObject(ctx, "b", "a/b/c.bin")
	if err != nil || len(got) != 3 {
		t.Fatalf("get: %v %v", got, err)
	}
	if _, err := store.GetObject(ctx, "b", "a/missing"); !IsCode(err, CodeObjectNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	keys, err := store.ListPrefix(ctx, "b", "a/")
	if err != nil || len(keys) != 1 || keys[0] != "a/b/c.bin" {
		t.Fatalf("list: %v %v", keys, err)
	}
	if keys, _ := store.ListPrefix(ctx, "b", "z/"); len(keys) != 0 {
		t.Fatalf("prefix filter leaked: %v", keys)
	}
	size, err := store.StatObject(ctx, "b", "a/b/c.bin")
	if err != nil || size != 3 {
		t.Fatalf("stat: %d %v", size, err)
	}
	if _, err := store.StatObject(ctx, "b", "a/missing"); !IsCode(err, CodeObjectNotFound) {
		t.Fatalf("stat missing: %v", err)
	}
	if err := store.RemoveObject(ctx, "b", "a/b/c.bin"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.GetObject(ctx, "b", "a/b/c.bin"); !IsCode(err, CodeObjectNotFound) {
		t.Fatalf("get after remove: %v", err)
	}
	if err := store.RemoveObject(ctx, "b", "a/b/c.bin"); err != nil {
		t.Fatalf("remove of missing object: %v", err)
	}
}
