package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// flushThreshold is the batch size that triggers a write before the ticker fires.
const flushThreshold = 100

// Logger is the buffered Recorder. Entries are queued on a channel and a
// background goroutine writes them in batches.
type Logger struct {
	store         Store
	buffer        chan *Entry
	done          chan struct{}
	wg            sync.WaitGroup
	flushInterval time.Duration
	dropped       atomic.Int64

	// gate is held shared by Record and exclusively by Close
	gate   sync.RWMutex
	closed bool
}

// NewLogger starts a Logger writing to store.
func NewLogger(store Store, cfg Config) *Logger {
	cfg = cfg.withDefaults()

	l := &Logger{
		store:         store,
		buffer:        make(chan *Entry, cfg.BufferSize),
		done:          make(chan struct{}),
		flushInterval: cfg.FlushInterval,
	}

	l.wg.Add(1)
	go l.flushLoop()

	return l
}

// Record queues entry. It never blocks: when the buffer is full or the
// logger is closed the entry is dropped.
func (l *Logger) Record(entry *Entry) {
	if entry == nil {
		return
	}

	l.gate.RLock()
	defer l.gate.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		l.dropped.Add(1)
		slog.Warn("usage buffer full, dropping entry",
			"request_id", entry.RequestID,
			"provider", entry.Provider,
		)
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes queued entries and closes the store. It is idempotent.
func (l *Logger) Close() error {
	l.gate.Lock()
	if l.closed {
		l.gate.Unlock()
		return nil
	}
	l.closed = true
	l.gate.Unlock()

	close(l.done)
	l.wg.Wait()

	return l.store.Close()
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	batch := make([]*Entry, 0, flushThreshold)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		l.writeBatch(batch)
		batch = make([]*Entry, 0, flushThreshold)
	}

	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= flushThreshold {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-l.done:
			close(l.buffer)
			for entry := range l.buffer {
				batch = append(batch, entry)
			}
			flush()
			return
		}
	}
}

func (l *Logger) writeBatch(batch []*Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write usage batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// NoopRecorder discards entries. It is used when usage tracking is disabled.
type NoopRecorder struct{}

// Record implements Recorder
func (NoopRecorder) Record(*Entry) {}

// Close implements Recorder
func (NoopRecorder) Close() error { return nil }
