// Package backup snapshots the whole store into one compressed archive.
package backup

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/peterpeterparker/leancow/internal/store"
)

// Format selects the archive container.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTarXz Format = "tar.xz"
)

// Ext is the filename extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// Archive serializes every store entry as "<key>.json" into one archive.
// Unlike the export path there is no status filtering: the snapshot is
// exhaustive and mutates nothing. An empty store yields (nil, nil), the
// empty signal.
func Archive(st store.Store, format Format) ([]byte, error) {
	entries, err := st.Entries()
	if err != nil {
		return nil, fmt.Errorf("enumerate store: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	switch format {
	case FormatTarXz:
		return archiveTarXz(entries)
	case FormatZip, "":
		return archiveZip(entries)
	default:
		return nil, fmt.Errorf("unknown backup format %q", format)
	}
}

func archiveZip(entries []store.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, entry := range entries {
		member, err := w.Create(entry.Key + ".json")
		if err != nil {
			return nil, fmt.Errorf("create member %s: %w", entry.Key, err)
		}
		if _, err := member.Write(entry.Value); err != nil {
			return nil, fmt.Errorf("write member %s: %w", entry.Key, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func archiveTarXz(entries []store.Entry) ([]byte, error) {
	var buf bytes.Buffer

	xzw, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create xz writer: %w", err)
	}
	tw := tar.NewWriter(xzw)

	now := time.Now()
	for _, entry := range entries {
		hdr := &tar.Header{
			Name:    entry.Key + ".json",
			Mode:    0644,
			Size:    int64(len(entry.Value)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("create member %s: %w", entry.Key, err)
		}
		if _, err := tw.Write(entry.Value); err != nil {
			return nil, fmt.Errorf("write member %s: %w", entry.Key, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}
	if err := xzw.Close(); err != nil {
		return nil, fmt.Errorf("close xz: %w", err)
	}
	return buf.Bytes(), nil
}
