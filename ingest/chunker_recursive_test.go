package ingest

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/foliolabs/folio"
)

func newRecursiveChunker(t *testing.T, size, overlap int) *RecursiveChunker {
	t.Helper()
	rc, err := NewRecursiveChunker(WithChunkSize(size), WithChunkOverlap(overlap))
	if err != nil {
		t.Fatalf("NewRecursiveChunker: %v", err)
	}
	return rc
}

func TestRecursiveChunkerConfigError(t *testing.T) {
	_, err := NewRecursiveChunker(WithChunkSize(0))
	var cerr *folio.ErrConfig
	if !errors.As(err, &cerr) {
		t.Fatalf("got %v, want *folio.ErrConfig", err)
	}
}

func TestRecursiveChunkerEmpty(t *testing.T) {
	rc := newRecursiveChunker(t, 100, 20)
	if got := rc.Chunk("   \n  "); got != nil {
		t.Errorf("Chunk(whitespace) = %q, want nil", got)
	}
}

func TestRecursiveChunkerShortText(t *testing.T) {
	rc := newRecursiveChunker(t, 100, 20)
	got := rc.Chunk("fits in one chunk")
	want := []string{"fits in one chunk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestRecursiveChunkerParagraphLevel(t *testing.T) {
	// Paragraph splitting alone suffices, and no overlap is injected
	// between paragraph-level chunks.
	para := strings.Repeat("ab ", 26) + "xy"
	text := para + "\n\n" + para + "\n\n" + para

	rc := newRecursiveChunker(t, 100, 10)
	got := rc.Chunk(text)
	want := []string{para, para, para}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestRecursiveChunkerNewlineFallback(t *testing.T) {
	line := "abcdefghij klmnopqrst uvwxyz12"
	text := strings.Join([]string{line, line, line, line, line}, "\n")

	rc := newRecursiveChunker(t, 70, 10)
	got := rc.Chunk(text)
	want := []string{line + "\n" + line, line + "\n" + line, line}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
	for i, c := range got {
		if len(c) > 70 {
			t.Errorf("chunk %d is %d bytes, want <= 70", i, len(c))
		}
	}
}

func TestRecursiveChunkerSentenceSeparator(t *testing.T) {
	s := "Alpha bravo charlie delta echo foxtrot golf"
	text := s + ". " + s + ". " + s + "."

	rc := newRecursiveChunker(t, 90, 10)
	got := rc.Chunk(text)
	want := []string{s + ". " + s, s + "."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestRecursiveChunkerSlicerOverlap(t *testing.T) {
	// No separator matches, so the fixed-size fallback produces
	// slices of 30 starting every 25 runes.
	text := strings.Repeat("0123456789", 10)

	rc := newRecursiveChunker(t, 30, 5)
	got := rc.Chunk(text)
	want := []string{text[0:30], text[25:55], text[50:80], text[75:100]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestRecursiveChunkerKeepsSeparatorRuns(t *testing.T) {
	// A run of blank lines splits into an empty piece, which stays
	// attached to its chunk so the extra newlines are not lost.
	a := strings.Repeat("a", 40)
	b := strings.Repeat("b", 40)
	text := a + "\n\n\n\n" + b

	rc := newRecursiveChunker(t, 50, 5)
	got := rc.Chunk(text)
	want := []string{a + "\n\n", b}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %q, want %q", got, want)
	}
}

func TestRecursiveChunkerAllWithinSize(t *testing.T) {
	text := strings.Repeat("ab ", 26) + "xy\n\n" +
		strings.Repeat("x", 250) + "\n\nshort tail"

	rc := newRecursiveChunker(t, 100, 20)
	for i, c := range rc.Chunk(text) {
		if len(c) > 100 {
			t.Errorf("chunk %d is %d bytes, want <= 100", i, len(c))
		}
	}
}
