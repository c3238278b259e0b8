package app

import (
	"bytes"
	"strings"
	"sync"

	"fyne.io/fyne/v2/data/binding"
)

// logPanel is the io.Writer behind the log entry of the study window. It keeps the
// most recent complete lines; a write without a trailing newline waits for the rest.
type logPanel struct {
	mu      sync.Mutex
	out     binding.String
	keep    int
	recent  []string
	partial []byte
}

func newLogPanel(out binding.String, keep int) *logPanel {
	return &logPanel{out: out, keep: keep}
}

func (p *logPanel) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partial = append(p.partial, b...)
	i := bytes.LastIndexByte(p.partial, '\n')
	if i < 0 {
		return len(b), nil
	}
	for _, line := range strings.Split(string(p.partial[:i]), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			p.recent = append(p.recent, line)
		}
	}
	p.partial = append(p.partial[:0], p.partial[i+1:]...)
	if over := len(p.recent) - p.keep; over > 0 {
		p.recent = append(p.recent[:0], p.recent[over:]...)
	}
	_ = p.out.Set(strings.Join(p.recent, "\n"))
	return len(b), nil
}
