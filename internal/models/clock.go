package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var lastID atomic.Int64

// NewID выдаёт идентификатор записи: миллисекундный timestamp, как в легаси
// документах. Монотонность гарантируется даже при вызовах в одну миллисекунду.
func NewID() int64 {
	for {
		now := time.Now().UnixMilli()
		prev := lastID.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastID.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// NewSessionID повторяет схему старой реализации: 12 hex-символов
// от md5(имя файла + timestamp).
func NewSessionID(filename string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s%d", filename, time.Now().UnixMilli())))
	return hex.EncodeToString(sum[:])[:12]
}

// NowDisplay — формат sent_at в истории файлов ("02/01/2006 15:04").
func NowDisplay() string {
	return time.Now().Format("02/01/2006 15:04")
}

// NowISO — формат created_at/updated_at.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
