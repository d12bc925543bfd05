// Package chunker режет байтовый поток на нумерованные части фиксированного
// размера с SHA-256 каждой части и собирает их обратно со строгой проверкой
// порядка и контрольных сумм.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/sir_venger/chat_drive/internal/models"
)

// Chunk — одна часть потока: нулевой индекс, данные и их SHA-256.
type Chunk struct {
	Index  int
	Data   []byte
	Sha256 string
}

// Sum считает hex-представление SHA-256.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Splitter лениво выдаёт части исходного потока. Повторный проход невозможен:
// для ретрая вызывающий обязан заново открыть источник.
type Splitter struct {
	r    io.Reader
	size int64
	next int
	done bool
}

// NewSplitter создаёт Splitter с заданным размером части.
func NewSplitter(r io.Reader, chunkSize int64) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	return &Splitter{r: r, size: chunkSize}, nil
}

// Next возвращает следующую часть либо io.EOF, когда поток исчерпан.
// Последняя часть может быть короче остальных, но никогда не пустая.
func (s *Splitter) Next() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	buf := make([]byte, s.size)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case err == io.EOF:
		s.done = true
		return Chunk{}, io.EOF
	case err == io.ErrUnexpectedEOF:
		s.done = true
	case err != nil:
		s.done = true
		return Chunk{}, fmt.Errorf("read chunk %d: %w", s.next, err)
	}

	c := Chunk{
		Index:  s.next,
		Data:   buf[:n],
		Sha256: Sum(buf[:n]),
	}
	s.next++
	return c, nil
}

// Merger принимает части строго по возрастанию индексов с нуля и пишет их
// байты в w. Пропуск индекса или расхождение контрольной суммы — ErrIntegrity.
type Merger struct {
	w     io.Writer
	next  int
	total int64
}

// NewMerger создаёт Merger, пишущий в w.
func NewMerger(w io.Writer) *Merger {
	return &Merger{w: w}
}

// Append проверяет и дописывает очередную часть.
func (m *Merger) Append(c Chunk) error {
	if c.Index != m.next {
		return fmt.Errorf("%w: want part %d, got %d", models.ErrIntegrity, m.next, c.Index)
	}
	if c.Sha256 != "" && Sum(c.Data) != c.Sha256 {
		return fmt.Errorf("%w: sha256 mismatch at part %d", models.ErrIntegrity, c.Index)
	}

	if _, err := m.w.Write(c.Data); err != nil {
		return err
	}
	m.next++
	m.total += int64(len(c.Data))
	return nil
}

// Written возвращает суммарное число записанных байт.
func (m *Merger) Written() int64 { return m.total }
