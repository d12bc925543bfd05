package chunker

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/sir_venger/chat_drive/internal/models"
)

func Test_SplitMerge_Roundtrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xA1, 0xB2, 0xC3}, 1<<16) // ~192KB
	sp, err := NewSplitter(bytes.NewReader(payload), 64*1024)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	m := NewMerger(&out)
	chunks := 0
	for {
		c, err := sp.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Append(c); err != nil {
			t.Fatal(err)
		}
		chunks++
	}

	if chunks != 3 {
		t.Fatalf("want 3 chunks, got %d", chunks)
	}
	if m.Written() != int64(len(payload)) {
		t.Fatalf("written %d, want %d", m.Written(), len(payload))
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Fatal("merged bytes differ from source")
	}
}

func Test_Splitter_ShortFinalChunk(t *testing.T) {
	payload := make([]byte, 100)
	sp, _ := NewSplitter(bytes.NewReader(payload), 64)

	first, err := sp.Next()
	if err != nil || len(first.Data) != 64 {
		t.Fatalf("first chunk: len=%d err=%v", len(first.Data), err)
	}
	second, err := sp.Next()
	if err != nil || len(second.Data) != 36 {
		t.Fatalf("second chunk: len=%d err=%v", len(second.Data), err)
	}
	if _, err := sp.Next(); err != io.EOF {
		t.Fatalf("want EOF, got %v", err)
	}
}

func Test_Splitter_RejectsBadSize(t *testing.T) {
	if _, err := NewSplitter(bytes.NewReader(nil), 0); err == nil {
		t.Fatal("zero chunk size accepted")
	}
}

func Test_Merger_GapIsIntegrityError(t *testing.T) {
	m := NewMerger(io.Discard)
	if err := m.Append(Chunk{Index: 0, Data: []byte("a"), Sha256: Sum([]byte("a"))}); err != nil {
		t.Fatal(err)
	}
	err := m.Append(Chunk{Index: 2, Data: []byte("c"), Sha256: Sum([]byte("c"))})
	if !errors.Is(err, models.ErrIntegrity) {
		t.Fatalf("want ErrIntegrity, got %v", err)
	}
}

func Test_Merger_ChecksumMismatch(t *testing.T) {
	m := NewMerger(io.Discard)
	err := m.Append(Chunk{Index: 0, Data: []byte("corrupted"), Sha256: Sum([]byte("original"))})
	if !errors.Is(err, models.ErrIntegrity) {
		t.Fatalf("want ErrIntegrity, got %v", err)
	}
}
