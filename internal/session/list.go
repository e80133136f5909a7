package session

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry is a session found on disk, live or archived.
type Entry struct {
	Name     string
	Path     string
	Started  time.Time
	Archived bool
	Frames   int
	Bytes    int64
}

// List returns the sessions under root, oldest first. Names that do not
// parse as a session start time are ignored. A missing root is empty.
func List(root string) ([]Entry, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, item := range items {
		name := item.Name()
		started, ok := ParseName(name)
		if !ok {
			continue
		}
		e := Entry{Name: name, Path: filepath.Join(root, name), Started: started}

		switch {
		case item.IsDir():
			e.Frames, e.Bytes = countFrames(e.Path)
		case strings.HasSuffix(name, ArchiveExt):
			e.Archived = true
			e.Frames = countArchived(e.Path)
			if info, err := item.Info(); err == nil {
				e.Bytes = info.Size()
			}
		default:
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Started.Equal(entries[j].Started) {
			return !entries[i].Archived && entries[j].Archived
		}
		return entries[i].Started.Before(entries[j].Started)
	})
	return entries, nil
}

// Frames returns the frame files in a session directory, oldest first.
func Frames(dir string) ([]string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames []string
	for _, item := range items {
		if item.Type().IsRegular() && strings.HasSuffix(item.Name(), FrameExt) {
			frames = append(frames, filepath.Join(dir, item.Name()))
		}
	}
	sort.Strings(frames)
	return frames, nil
}

// Latest returns the newest live session directory under root.
func Latest(root string) (Entry, bool) {
	entries, err := List(root)
	if err != nil {
		return Entry{}, false
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].Archived {
			return entries[i], true
		}
	}
	return Entry{}, false
}

func countFrames(dir string) (int, int64) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	var n int
	var size int64
	for _, item := range items {
		if !strings.HasSuffix(item.Name(), FrameExt) {
			continue
		}
		if info, err := item.Info(); err == nil && info.Mode().IsRegular() {
			n++
			size += info.Size()
		}
	}
	return n, size
}

func countArchived(path string) int {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0
	}
	defer r.Close()

	var n int
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, FrameExt) {
			n++
		}
	}
	return n
}
