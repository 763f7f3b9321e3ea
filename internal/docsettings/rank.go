package docsettings

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pagemark/sidecar/internal/fs"
)

// Candidate is a discovered, existing sidecar-like file considered during
// resolution.
type Candidate struct {
	// Path of the existing regular file.
	Path string
	// MTime is the recorded modification time. It may be raised above the
	// file's true mtime during backup/primary reconciliation.
	MTime time.Time
	// Priority is the slot index in the input sequence; lower means the
	// location was declared earlier and is more authoritative on ties.
	Priority int
}

// rankCandidates filters candidate slots down to existing regular files
// and orders them most- to least-recently used.
//
// A slot ending in ".old" whose immediately preceding input slot was kept
// is treated as that slot's backup. If the backup's true mtime exceeds the
// primary's recorded mtime (clock skew across storage media), the
// primary's recorded mtime is raised to match so the backup can never
// outrank its own primary. The files themselves are never touched.
//
// Ties sort by ascending priority.
func rankCandidates(fsys fs.FS, log zerolog.Logger, slots []string) []Candidate {
	kept := make([]Candidate, 0, len(slots))
	prevKept := false

	for i, path := range slots {
		if path == "" {
			prevKept = false

			continue
		}

		info, err := fsys.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			prevKept = false

			continue
		}

		mtime := info.ModTime()

		if strings.HasSuffix(path, backupSuffix) && prevKept {
			primary := &kept[len(kept)-1]

			if mtime.After(primary.MTime) {
				log.Warn().
					Str("backup", path).
					Str("primary", primary.Path).
					Msg("backup is newer than its primary, fudging timestamps")

				primary.MTime = mtime
			}
		}

		kept = append(kept, Candidate{Path: path, MTime: mtime, Priority: i})
		prevKept = true
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].MTime.Equal(kept[j].MTime) {
			return kept[i].MTime.After(kept[j].MTime)
		}

		return kept[i].Priority < kept[j].Priority
	})

	return kept
}
