package docsettings

import (
	"path/filepath"
	"strings"
)

// PurgeSelection chooses which sidecar data a purge removes.
type PurgeSelection struct {
	// Settings removes the candidates recorded by the last open and any
	// sidecar directories left empty afterwards.
	Settings bool
	// CustomCover removes the custom cover image.
	CustomCover bool
	// CustomMetadata removes the metadata-override file.
	CustomMetadata bool
}

// Purge removes all sidecar data for the document: every settings
// candidate from the last open, the custom cover, the metadata override,
// and any sidecar directories left empty.
func (s *Session) Purge() {
	s.purge("", PurgeSelection{Settings: true, CustomCover: true, CustomMetadata: true})
}

// PurgeOnly removes the selected subset of sidecar data.
func (s *Session) PurgeOnly(sel PurgeSelection) {
	s.purge("", sel)
}

// purge deletes the selected data, sparing keep and its ".old" companion
// among settings candidates. All deletions are best-effort.
func (s *Session) purge(keep string, sel PurgeSelection) {
	fsys := s.store.fsys
	log := s.store.log

	if sel.CustomCover {
		if path, ok := s.CustomCoverFile(); ok {
			_ = fsys.Remove(path)

			log.Debug().Str("path", path).Msg("custom cover purged")
		}

		s.ResetCustomCoverCache()
	}

	if sel.CustomMetadata {
		if path, ok := s.CustomMetadataFile(); ok {
			_ = fsys.Remove(path)

			log.Debug().Str("path", path).Msg("custom metadata purged")
		}
	}

	if sel.Settings {
		for _, cand := range s.candidates {
			if keep != "" && (cand.Path == keep || cand.Path == keep+backupSuffix) {
				continue
			}

			err := fsys.Remove(cand.Path)
			if err == nil {
				log.Debug().Str("path", cand.Path).Msg("stale settings candidate purged")
			}
		}

		s.removeEmptySidecarDirs()
	}
}

// removeEmptySidecarDirs removes the doc-folder sidecar directory if it is
// now empty, and walks now-empty central sidecar ancestors up to but
// excluding the central root. Non-empty directories make the non-recursive
// Remove fail, which ends the walk.
func (s *Session) removeEmptySidecarDirs() {
	fsys := s.store.fsys

	if s.docSidecarDir != "" {
		_ = fsys.Remove(s.docSidecarDir)
	}

	root := filepath.Clean(s.store.cfg.SettingsDir)
	sep := string(filepath.Separator)

	dir := s.centralSidecarDir
	for dir != "" {
		dir = filepath.Clean(dir)

		if root == "" || dir == root || !strings.HasPrefix(dir, root+sep) {
			return
		}

		err := fsys.Remove(dir)
		if err != nil {
			return
		}

		dir = filepath.Dir(dir)
	}
}
