package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/clinicore/medsearch/internal/models"
)

func TestExtractPlain(t *testing.T) {
	pages, err := extractPlain([]byte("hello world"))
	if err != nil {
		t.Fatalf("extractPlain error: %v", err)
	}
	if len(pages) != 1 || pages[0].Number != 1 || pages[0].Text != "hello world" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestExtractPlain_FormFeedPages(t *testing.T) {
	pages, err := extractPlain([]byte("page one\fpage two\fpage three"))
	if err != nil {
		t.Fatalf("extractPlain error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[2].Number != 3 || pages[2].Text != "page three" {
		t.Errorf("page 3 = %+v", pages[2])
	}
}

func TestExtractPlain_InvalidUTF8(t *testing.T) {
	if _, err := extractPlain([]byte{0xff, 0xfe, 0xfd}); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}

func TestExtract_MissingFile(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, models.ErrDocumentUnreadable) {
		t.Errorf("expected ErrDocumentUnreadable, got %v", err)
	}
}

func TestExtract_TextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("chronic kidney disease staging"), 0600); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor()
	pages, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "chronic kidney disease staging" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestExtractBytes_UnknownExtensionFallsBackToPlain(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("plain content"), ".log")
	if err != nil {
		t.Fatalf("ExtractBytes error: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "plain content" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestExtractDOCX_NotAZip(t *testing.T) {
	if _, err := extractDOCX([]byte("not a zip")); err == nil {
		t.Error("expected error for non-zip content")
	}
}
