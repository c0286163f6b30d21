package main

import (
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// meter shows the hash attempts of the block being mined. The ledger reports
// into it through its progress callback.
type meter struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

func (m *meter) begin(description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.out
	if out == nil {
		out = os.Stderr
	}
	m.bar = progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
}

func (m *meter) report(attempts uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bar != nil {
		_ = m.bar.Set64(int64(attempts))
	}
}

func (m *meter) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bar != nil {
		_ = m.bar.Finish()
		m.bar = nil
	}
}

// mining wraps fn between begin and end.
func mining[T any](m *meter, description string, fn func() T) T {
	m.begin(description)
	defer m.end()
	return fn()
}
