// Package session describes one capture run and its on-disk layout.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayout names session directories and frame files, to the second.
const TimeLayout = "2006-01-02 15-04-05"

// FrameExt and ArchiveExt are the suffixes of frames and compacted sessions.
const (
	FrameExt   = ".jpg"
	ArchiveExt = ".zip"
)

// Strategy is how the capture region is resolved for the whole session.
type Strategy string

const (
	StrategyWindow Strategy = "window"
	StrategyScreen Strategy = "screen"
)

// Session is one run of the agent.
type Session struct {
	ID       string
	Started  time.Time
	Root     string
	Dir      string
	Strategy Strategy
}

// New creates the session directory under root, named after started.
func New(root string, started time.Time) (*Session, error) {
	started = started.Truncate(time.Second)
	dir := filepath.Join(root, started.Format(TimeLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Session{
		ID:      uuid.NewString(),
		Started: started,
		Root:    root,
		Dir:     dir,
	}, nil
}

// Name is the directory base name, shared with the archive.
func (s *Session) Name() string {
	return filepath.Base(s.Dir)
}

// FramePath returns the file for a frame captured at t.
func (s *Session) FramePath(t time.Time) string {
	return filepath.Join(s.Dir, t.Format(TimeLayout)+FrameExt)
}

// ArchivePath returns the sibling archive this session rotates into.
func (s *Session) ArchivePath() string {
	return ArchivePathFor(s.Dir)
}

// ArchivePathFor returns the archive path for any session directory.
func ArchivePathFor(dir string) string {
	return filepath.Clean(dir) + ArchiveExt
}

// ParseName returns the start time encoded in a session directory or archive name.
func ParseName(name string) (time.Time, bool) {
	name = strings.TrimSuffix(name, ArchiveExt)
	t, err := time.ParseInLocation(TimeLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
