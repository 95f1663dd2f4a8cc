package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kompox/pgcluster/domain/model"
)

const doc = `---
# keep me
platform: aws
architecture: M1
cluster_name: alpha
locations:
- Name: first
  subnet: 10.33.0.0/28
instances:
- Name: one
  location: first
  node: 1
  role: primary
`

func TestClusterStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "alpha")
	s := NewClusterStore()

	ok, err := s.Exists(ctx, dir)
	if err != nil || ok {
		t.Fatalf("Exists() = %v, %v before writing", ok, err)
	}
	if _, _, err := s.Load(ctx, dir); !errors.Is(err, model.ErrExternal) {
		t.Fatalf("Load of a missing cluster: %v", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, raw, err := s.Load(ctx, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(raw) != doc {
		t.Errorf("raw document not returned verbatim")
	}
	c.Group().Set("postgres_version", "16")

	out, err := s.Save(ctx, dir, c, raw)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "# keep me") {
		t.Errorf("comment lost:\n%s", text)
	}
	if strings.Index(text, "platform:") > strings.Index(text, "architecture:") {
		t.Errorf("original key order lost:\n%s", text)
	}
	onDisk, _ := os.ReadFile(filepath.Join(dir, "config.yml"))
	if string(onDisk) != text {
		t.Error("returned bytes differ from the written file")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}

	other := filepath.Join(root, "beta", "config.yml")
	if _, err := s.Save(ctx, other, c, nil); err != nil {
		t.Fatalf("Save to a new file: %v", err)
	}
	sib, err := s.Siblings(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(sib) != 1 || !strings.HasSuffix(sib[0], filepath.Join("beta", "config.yml")) {
		t.Errorf("Siblings() = %v", sib)
	}
}
