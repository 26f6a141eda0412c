// Package errlog reports non-fatal errors into per-category logs.
package errlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Category selects the log a message is written to.
type Category string

const (
	Errors       Category = "errors"
	AntiOverride Category = "anti-override"
	Placeholders Category = "placeholder-errors"
)

const (
	burst    = 20
	interval = 100 * time.Millisecond
)

type categoryLog struct {
	once    sync.Once
	logger  *log.Logger
	limiter *rate.Limiter
	dropped atomic.Int64
}

// Manager writes to stdout and, when a directory is configured, to one file
// per category created on first use.
type Manager struct {
	dir string
	out io.Writer

	mu      sync.Mutex
	logs    map[Category]*categoryLog
	printed map[string]bool

	debug atomic.Bool
}

// New creates a Manager. An empty dir keeps output on stdout only.
func New(dir string) *Manager {
	return NewWithWriter(dir, os.Stdout)
}

func NewWithWriter(dir string, out io.Writer) *Manager {
	return &Manager{
		dir:     dir,
		out:     out,
		logs:    make(map[Category]*categoryLog),
		printed: make(map[string]bool),
	}
}

func (m *Manager) SetDebug(on bool) { m.debug.Store(on) }

func (m *Manager) category(cat Category) *categoryLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	cl, ok := m.logs[cat]
	if !ok {
		cl = &categoryLog{
			logger:  log.New(m.out, fmt.Sprintf("[%s] ", cat), log.LstdFlags),
			limiter: rate.NewLimiter(rate.Every(interval), burst),
		}
		m.logs[cat] = cl
	}
	return cl
}

func (m *Manager) open(cat Category, cl *categoryLog) {
	cl.once.Do(func() {
		if m.dir == "" {
			return
		}
		if err := os.MkdirAll(m.dir, 0755); err != nil {
			cl.logger.Printf("could not create log directory: %v", err)
			return
		}
		f, err := os.OpenFile(filepath.Join(m.dir, string(cat)+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			cl.logger.Printf("could not open log file: %v", err)
			return
		}
		cl.logger.SetOutput(io.MultiWriter(m.out, f))
	})
}

// PrintError logs msg and err under cat. With suppressDuplicates a message
// is only ever printed once. Floods are rate limited per category and the
// number of dropped messages is reported with the next one that passes.
func (m *Manager) PrintError(msg string, err error, suppressDuplicates bool, cat Category) {
	if suppressDuplicates {
		m.mu.Lock()
		if m.printed[msg] {
			m.mu.Unlock()
			return
		}
		m.printed[msg] = true
		m.mu.Unlock()
	}
	cl := m.category(cat)
	if !cl.limiter.Allow() {
		cl.dropped.Add(1)
		return
	}
	m.open(cat, cl)
	if n := cl.dropped.Swap(0); n > 0 {
		cl.logger.Printf("%d similar messages suppressed", n)
	}
	if err != nil {
		cl.logger.Printf("%s: %v", msg, err)
		return
	}
	cl.logger.Print(msg)
}

func (m *Manager) Debugf(format string, v ...interface{}) {
	if !m.debug.Load() {
		return
	}
	cl := m.category("debug")
	m.open("debug", cl)
	cl.logger.Printf(format, v...)
}
