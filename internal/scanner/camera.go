package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrCameraBusy is returned when the camera is already held by another session.
var ErrCameraBusy = errors.New("camera busy")

// Camera is a video device that can be opened for one session at a time.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is a live camera stream.
type Stream interface {
	// NextFrame blocks until the next frame at the device cadence.
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// ExclusiveCamera grants a Camera to one holder and fails fast for everyone else.
type ExclusiveCamera struct {
	cam  Camera
	held atomic.Bool
}

// NewExclusiveCamera wraps cam.
func NewExclusiveCamera(cam Camera) *ExclusiveCamera {
	return &ExclusiveCamera{cam: cam}
}

// Open acquires the camera or returns ErrCameraBusy without waiting.
func (e *ExclusiveCamera) Open(ctx context.Context) (Stream, error) {
	if !e.held.CompareAndSwap(false, true) {
		return nil, ErrCameraBusy
	}
	s, err := e.cam.Open(ctx)
	if err != nil {
		e.held.Store(false)
		return nil, err
	}
	return &exclusiveStream{Stream: s, release: func() { e.held.Store(false) }}, nil
}

// Held reports whether a session currently holds the camera.
func (e *ExclusiveCamera) Held() bool { return e.held.Load() }

type exclusiveStream struct {
	Stream
	once    sync.Once
	release func()
}

func (s *exclusiveStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.Stream.Close()
		s.release()
	})
	return err
}

var frameExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// ErrFramesExhausted is returned by a non-looping DirCamera once every frame was shown.
var ErrFramesExhausted = errors.New("frames exhausted")

// DirCamera replays the image files of a directory as frames, one per Interval.
// It stands in for a real device on hosts without one. The read position carries
// over between sessions, so each session resumes after the last frame it consumed.
type DirCamera struct {
	Dir      string
	Interval time.Duration
	Loop     bool

	mu  sync.Mutex
	pos int
}

// Open lists the frame files. An empty directory is an error.
func (d *DirCamera) Open(ctx context.Context) (Stream, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("open frames dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(d.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames in %s", d.Dir)
	}
	sort.Strings(files)

	d.mu.Lock()
	next := d.pos
	d.mu.Unlock()
	if next >= len(files) {
		if !d.Loop {
			return nil, ErrFramesExhausted
		}
		next = 0
	}
	interval := d.Interval
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &dirStream{cam: d, files: files, next: next, loop: d.Loop, ticker: time.NewTicker(interval)}, nil
}

type dirStream struct {
	cam    *DirCamera
	files  []string
	next   int
	loop   bool
	ticker *time.Ticker
}

func (s *dirStream) NextFrame(ctx context.Context) (image.Image, error) {
	if s.next >= len(s.files) {
		if !s.loop {
			return nil, io.EOF
		}
		s.next = 0
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}
	path := s.files[s.next]
	s.next++
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *dirStream) Close() error {
	s.ticker.Stop()
	s.cam.mu.Lock()
	s.cam.pos = s.next
	s.cam.mu.Unlock()
	return nil
}
