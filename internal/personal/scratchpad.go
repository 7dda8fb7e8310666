package personal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/logger"
)

type ScratchpadRemote interface {
	GetScratchpad(ctx context.Context) (string, error)
	SaveScratchpad(ctx context.Context, content string) error
}

// Scratchpad holds the note text. Set updates memory and the cache at once; the server is written
// after Delay of quiet, and only when the text differs from what it last accepted.
type Scratchpad struct {
	remote ScratchpadRemote
	cache  Cache
	key    string
	delay  time.Duration

	OnError func(error)

	mu      sync.Mutex
	text    string
	synced  string
	known   bool // synced reflects the server
	loading bool
	closed  bool
	timer   *time.Timer

	pushMu sync.Mutex
}

func NewScratchpad(remote ScratchpadRemote, cache Cache, key string, delay time.Duration) *Scratchpad {
	if delay <= 0 {
		delay = time.Second
	}
	return &Scratchpad{remote: remote, cache: cache, key: key, delay: delay, loading: true}
}

func (s *Scratchpad) Load(ctx context.Context) error {
	text, err := s.remote.GetScratchpad(ctx)
	if err != nil {
		logger.Warn("scratchpad.load remote failed, using cache", "err", err)
		var cached string
		if cerr := s.cache.Load(s.key, &cached); cerr != nil && !errors.Is(cerr, ErrCacheMiss) {
			logger.Warn("scratchpad.load cache failed", "err", cerr)
		}
		s.mu.Lock()
		s.text = cached
		s.loading = false
		s.mu.Unlock()
		return fmt.Errorf("load scratchpad: %w", err)
	}
	s.mu.Lock()
	s.text, s.synced, s.known = text, text, true
	s.loading = false
	s.mu.Unlock()
	if err := s.cache.Store(s.key, text); err != nil {
		logger.Warn("scratchpad.cache store failed", "err", err)
	}
	return nil
}

func (s *Scratchpad) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Scratchpad) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Set records a keystroke and restarts the sync delay.
func (s *Scratchpad) Set(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.text = text
	if err := s.cache.Store(s.key, text); err != nil {
		logger.Warn("scratchpad.cache store failed", "err", err)
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.fire)
	} else {
		s.timer.Reset(s.delay)
	}
	return nil
}

func (s *Scratchpad) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.push(ctx); err != nil && s.OnError != nil {
		s.OnError(err)
	}
}

func (s *Scratchpad) push(ctx context.Context) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.mu.Lock()
	text := s.text
	skip := s.known && text == s.synced
	s.mu.Unlock()
	if skip {
		return nil
	}
	if err := s.remote.SaveScratchpad(ctx, text); err != nil {
		logger.Warn("scratchpad.sync failed", "err", err)
		return fmt.Errorf("save scratchpad: %w", err)
	}
	s.mu.Lock()
	s.synced, s.known = text, true
	s.mu.Unlock()
	return nil
}

// Flush cancels the pending delay and syncs now.
func (s *Scratchpad) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.push(ctx)
}

// Close flushes and refuses further edits.
func (s *Scratchpad) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Flush(ctx)
}
