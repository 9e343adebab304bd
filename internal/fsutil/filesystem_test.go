package fsutil

import (
	"io"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_CreateAndRead(t *testing.T) {
	fs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "plots", "run")

	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	name := filepath.Join(dir, "fit.png")
	w, err := fs.Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("png")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	w.Close()

	if !fs.Exists(name) {
		t.Fatal("expected file to exist after Create")
	}
	data, err := fs.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("expected %q, got %q", "png", data)
	}
	if fs.Exists(filepath.Join(dir, "missing.png")) {
		t.Error("expected missing file to not exist")
	}
}

func TestMemoryFileSystem_CreateNeedsDirectory(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Create("/out/report.html"); err == nil {
		t.Fatal("expected Create to fail without a parent directory")
	}
	if err := mfs.MkdirAll("/out", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	w, err := mfs.Create("/out/report.html")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w.Write([]byte("<html>"))
	w.Write([]byte("</html>"))

	// Nothing is visible until Close.
	if data, _ := mfs.ReadFile("/out/report.html"); len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/out/report.html")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("unexpected contents %q", data)
	}
}

func TestMemoryFileSystem_OpenAndNames(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("imports/b.csv", []byte("timestamp,speed\n"))
	mfs.AddFile("imports/a.csv", []byte("x"))

	if got := mfs.Names(); len(got) != 2 || got[0] != "imports/a.csv" {
		t.Errorf("unexpected names %v", got)
	}

	f, err := mfs.Open("imports/b.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "timestamp,speed\n" {
		t.Errorf("unexpected contents %q", data)
	}
	info, _ := f.Stat()
	if info.Name() != "b.csv" || info.Size() != int64(len(data)) {
		t.Errorf("unexpected stat %s/%d", info.Name(), info.Size())
	}

	if _, err := mfs.Open("imports/c.csv"); err == nil {
		t.Error("expected error opening missing file")
	}
}

func TestMemoryFileSystem_MkdirAllParents(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.MkdirAll("reports/2026/run", 0755)

	for _, dir := range []string{"reports", "reports/2026", "reports/2026/run"} {
		if !mfs.Exists(dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}
}
