package docsettings

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/pagemark/sidecar/internal/fs"
	"github.com/pagemark/sidecar/internal/lualit"
)

const (
	// backupFreshness is the rotation threshold: an existing settings file
	// younger than this is overwritten in place instead of rotated to
	// ".old", so rapid saves don't thrash the backup.
	backupFreshness = 60 * time.Second

	dirPerms  = 0o755
	filePerms = 0o644

	settingsBanner = "-- we can read Lua syntax here!\n"
)

type flushTarget struct {
	dir  string
	file string
}

// flushTargets lists write locations in preference order. Doc-folder mode
// falls back to the central directory for read-only document storage;
// central mode never writes next to documents.
func (s *Session) flushTargets() []flushTarget {
	if s.store.cfg.PlacementMode == PlaceDocFolder {
		return []flushTarget{
			{dir: s.docSidecarDir, file: s.docSidecarFile},
			{dir: s.centralSidecarDir, file: s.centralSidecarFile},
		}
	}

	return []flushTarget{
		{dir: s.centralSidecarDir, file: s.centralSidecarFile},
	}
}

// Flush durably persists the session's record and returns the sidecar
// directory used.
//
// The first target whose directory can be created and whose file can be
// opened wins. An existing file older than the freshness threshold is
// rotated to ".old" first. The written bytes are forced to the storage
// device before close, and the directory entry is forced after a rotation,
// so a crash leaves either the previous or the new generation readable.
// On success the custom cover and metadata override are migrated next to
// the written file and stale candidates are purged.
//
// When every target fails the error is [ErrNoWritableLocation]; the store
// on disk is unchanged. An empty document path is a no-op returning ("",
// nil).
func (s *Session) Flush() (string, error) {
	return s.flush(true)
}

func (s *Session) flush(migrateAssets bool) (string, error) {
	if s.docPath == "" {
		return "", nil
	}

	body, err := lualit.Marshal(map[string]any(s.data))
	if err != nil {
		return "", fmt.Errorf("serialize record: %w", err)
	}

	fsys := s.store.fsys
	log := s.store.log

	for _, tgt := range s.flushTargets() {
		if tgt.dir == "" {
			continue
		}

		err = fsys.MkdirAll(tgt.dir, dirPerms)
		if err != nil {
			log.Debug().Str("dir", tgt.dir).Err(err).Msg("sidecar dir not writable, trying next target")

			continue
		}

		rotated := s.rotateBackup(tgt.file)

		f, err := fsys.Create(tgt.file)
		if err != nil {
			log.Debug().Str("file", tgt.file).Err(err).Msg("sidecar file not writable, trying next target")

			continue
		}

		// The target is chosen once the open succeeds; a failed write is
		// reported, not retried elsewhere, so a healthy lower-priority
		// copy is never shadowed by a partial higher-priority one.
		err = writeSettings(f, body)
		if err != nil {
			return "", fmt.Errorf("write %s: %w", tgt.file, err)
		}

		if rotated {
			err = fsys.SyncDir(tgt.dir)
			if err != nil {
				return "", fmt.Errorf("sync %s: %w", tgt.dir, err)
			}
		}

		if migrateAssets {
			s.migrateCustomAssets(tgt.dir)
		}

		s.purge(tgt.file, PurgeSelection{Settings: true})

		log.Debug().Str("file", tgt.file).Msg("settings flushed")

		return tgt.dir, nil
	}

	return "", ErrNoWritableLocation
}

// rotateBackup renames an existing settings file to its ".old" companion
// when it is older than the freshness threshold. Reports whether a rename
// happened (the directory entry then needs an fsync).
func (s *Session) rotateBackup(file string) bool {
	info, err := s.store.fsys.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if time.Since(info.ModTime()) <= backupFreshness {
		return false
	}

	err = s.store.fsys.Rename(file, file+backupSuffix)
	if err != nil {
		s.store.log.Debug().Str("file", file).Err(err).Msg("backup rotation failed")

		return false
	}

	return true
}

// writeSettings writes the comment banner and record literal, forces the
// bytes to the storage device, and closes the file.
func writeSettings(f fs.File, body []byte) error {
	var buf bytes.Buffer

	buf.WriteString(settingsBanner)
	buf.WriteString("return ")
	buf.Write(body)
	buf.WriteByte('\n')

	_, writeErr := f.Write(buf.Bytes())
	if writeErr != nil {
		writeErr = fmt.Errorf("write: %w", writeErr)
	}

	syncErr := f.Sync()
	if syncErr != nil {
		syncErr = fmt.Errorf("fsync: %w", syncErr)
	}

	closeErr := f.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close: %w", closeErr)
	}

	return errors.Join(writeErr, syncErr, closeErr)
}
