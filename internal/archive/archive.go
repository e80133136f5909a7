// Package archive compacts finished session directories into sibling zip
// archives and sweeps directories left behind by earlier runs.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/cctv/errors"
	"github.com/grovetools/cctv/internal/metrics"
	"github.com/grovetools/cctv/internal/session"
)

const tmpExt = ".tmp"

// Archiver rotates session directories.
type Archiver struct {
	metrics *metrics.Recorder
	log     *logrus.Entry
}

// New returns an Archiver.
func New(rec *metrics.Recorder, log *logrus.Entry) *Archiver {
	return &Archiver{metrics: rec, log: log}
}

// Rotate writes dir into <dir>.zip and removes dir. Any archive already at
// that path is replaced. On failure dir is left as it was and no partial
// archive remains. An empty directory is removed without an archive.
func (a *Archiver) Rotate(dir string) error {
	dir = filepath.Clean(dir)
	log := a.log.WithField("dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		a.metrics.Rotation(false)
		return archiveFailed(dir, "read session directory", err)
	}
	if len(entries) == 0 {
		log.Debug("Removing empty session directory")
		if err := os.Remove(dir); err != nil {
			a.metrics.Rotation(false)
			return archiveFailed(dir, "remove empty directory", err)
		}
		return nil
	}

	dest := session.ArchivePathFor(dir)
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		a.metrics.Rotation(false)
		return archiveFailed(dir, "remove stale archive", err)
	}

	tmp := dest + tmpExt
	files, err := writeZip(tmp, dir)
	if err != nil {
		os.Remove(tmp)
		a.metrics.Rotation(false)
		return archiveFailed(dir, "write archive", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		a.metrics.Rotation(false)
		return archiveFailed(dir, "finalize archive", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		// The archive is complete and is kept; some frames may already be gone from dir.
		a.metrics.Rotation(false)
		return archiveFailed(dir, "remove session directory", err)
	}

	a.metrics.Rotation(true)
	log.WithField("archive", dest).WithField("files", files).Info("Session archived")
	return nil
}

// Sweep rotates every directory under root except the one named except, and
// clears temporary archives left by an interrupted rotation.
// Failures are logged per directory and never stop the sweep. It returns
// the number of directories rotated.
func (a *Archiver) Sweep(root, except string) int {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			a.log.WithError(err).WithField("root", root).Warn("Cannot list session root")
		}
		return 0
	}

	exceptName := ""
	if except != "" {
		exceptName = filepath.Base(filepath.Clean(except))
	}

	rotated := 0
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if !e.IsDir() {
			if strings.HasSuffix(e.Name(), session.ArchiveExt+tmpExt) {
				os.Remove(path)
			}
			continue
		}
		if e.Name() == exceptName || strings.HasSuffix(e.Name(), session.ArchiveExt) {
			continue
		}
		if err := a.Rotate(path); err != nil {
			a.log.WithError(err).WithField("dir", path).Warn("Could not archive previous session")
			continue
		}
		rotated++
	}
	return rotated
}

func writeZip(dest, dir string) (int, error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	files := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}
		files++
		return nil
	})

	closeErr := zw.Close()
	if err := out.Close(); closeErr == nil {
		closeErr = err
	}
	if walkErr != nil {
		return files, walkErr
	}
	return files, closeErr
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func archiveFailed(dir, stage string, err error) error {
	return errors.Wrap(err, errors.ErrCodeArchiveFailed, "archive failed: "+stage).
		WithDetail("dir", dir)
}
