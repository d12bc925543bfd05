package driveclient

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	barWidth     = 32
	renderPeriod = 120 * time.Millisecond
)

// progressBar — ASCII-индикатор переноса данных. Все методы безопасны на
// nil-получателе: без флага прогресса клиент просто не создаёт бар.
type progressBar struct {
	mu         sync.Mutex
	prefix     string
	total      int64
	current    int64
	lastRender time.Time
	lastWidth  int
	finished   bool
}

func newProgressBar(prefix string, total int64) *progressBar {
	return &progressBar{prefix: prefix, total: total}
}

func (p *progressBar) AddBytes(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.current += n
	now := time.Now()
	if now.Sub(p.lastRender) < renderPeriod {
		p.mu.Unlock()
		return
	}
	p.lastRender = now
	p.printLocked("")
	p.mu.Unlock()
}

func (p *progressBar) Finish() {
	p.complete(" done")
}

func (p *progressBar) Fail(err error) {
	suffix := " failed"
	if err != nil {
		suffix = fmt.Sprintf(" failed: %v", err)
	}
	p.complete(suffix)
}

func (p *progressBar) complete(suffix string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	if !p.finished {
		p.finished = true
		p.printLocked(suffix)
		fmt.Fprintln(os.Stdout)
	}
	p.mu.Unlock()
}

func (p *progressBar) printLocked(suffix string) {
	var b strings.Builder
	b.WriteString(p.prefix)
	b.WriteByte(' ')
	if p.total > 0 {
		ratio := float64(p.current) / float64(p.total)
		if ratio > 1 {
			ratio = 1
		}
		filled := int(ratio*barWidth + 0.5)
		b.WriteByte('[')
		b.WriteString(strings.Repeat("=", filled))
		b.WriteString(strings.Repeat(" ", barWidth-filled))
		b.WriteString(fmt.Sprintf("] %3d%% %s/%s", int(ratio*100+0.5), humanBytes(p.current), humanBytes(p.total)))
	} else {
		b.WriteString(humanBytes(p.current))
		b.WriteString(" transferred")
	}
	b.WriteString(suffix)

	line := b.String()
	padding := ""
	if p.lastWidth > len(line) {
		padding = strings.Repeat(" ", p.lastWidth-len(line))
	}
	p.lastWidth = len(line)
	fmt.Fprintf(os.Stdout, "\r%s%s", line, padding)
}

type barWriter struct {
	bar *progressBar
}

func (w barWriter) Write(b []byte) (int, error) {
	w.bar.AddBytes(int64(len(b)))
	return len(b), nil
}

func humanBytes(v int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(v)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", v, units[unit])
	}
	return fmt.Sprintf("%.1f %s", value, units[unit])
}
