package docsettings

import (
	"github.com/rs/zerolog"

	"github.com/pagemark/sidecar/internal/fs"
	"github.com/pagemark/sidecar/internal/lualit"
)

// Store resolves and persists sidecar settings records. It holds the
// injected configuration, filesystem, and logging sink shared by all
// sessions it creates.
type Store struct {
	cfg  Config
	fsys fs.FS
	log  zerolog.Logger
}

// NewStore creates a store. A nil fsys defaults to the real filesystem.
func NewStore(cfg Config, fsys fs.FS, log zerolog.Logger) *Store {
	if fsys == nil {
		fsys = fs.NewReal()
	}

	return &Store{cfg: cfg, fsys: fsys, log: log}
}

// Session owns one document's resolved sidecar paths, its loaded record,
// and the candidate list from the last open. It has no teardown; the
// caller keeps it as long as needed.
type Session struct {
	store   *Store
	docPath string

	docSidecarDir      string
	docSidecarFile     string
	centralSidecarDir  string
	centralSidecarFile string
	historyFile        string

	data       Record
	candidates []Candidate
	sourcePath string
	cover      coverLookup

	// customOnly sessions carry resolved paths for custom-asset work but
	// never scanned candidates or loaded a record.
	customOnly bool
}

func (st *Store) newSession(docPath string) *Session {
	return &Session{
		store:              st,
		docPath:            docPath,
		docSidecarDir:      st.cfg.SidecarDir(docPath, PlaceDocFolder),
		docSidecarFile:     st.cfg.SidecarFile(docPath, PlaceDocFolder),
		centralSidecarDir:  st.cfg.SidecarDir(docPath, PlaceCentralDir),
		centralSidecarFile: st.cfg.SidecarFile(docPath, PlaceCentralDir),
		historyFile:        st.cfg.HistoryPath(docPath),
		data:               Record{},
	}
}

// Open resolves every known on-disk copy of the document's settings,
// orders them most-recently-used, and loads the first one that parses to a
// non-empty mapping. Zero-byte and unparsable copies encountered before
// the winner are deleted (self-healing); lower-ranked copies stay on disk
// until a purge.
//
// An empty docPath yields a session whose record holds only the doc_path
// key; no disk access happens.
func (st *Store) Open(docPath string) *Session {
	s := st.newSession(docPath)

	slots := s.candidateSlots()
	s.candidates = rankCandidates(st.fsys, st.log, slots)

	for _, cand := range s.candidates {
		rec, ok := st.loadCandidate(cand.Path)
		if !ok {
			continue
		}

		s.data = rec
		s.sourcePath = cand.Path

		st.log.Debug().Str("path", cand.Path).Msg("settings read")

		break
	}

	s.data[keyDocPath] = docPath

	return s
}

// OpenCustomOnly returns a session for custom-asset work only: paths are
// resolved but no candidate scan or record load happens.
func (st *Store) OpenCustomOnly(docPath string) *Session {
	s := st.newSession(docPath)
	s.customOnly = true
	s.data[keyDocPath] = docPath

	return s
}

// loadCandidate reads and parses one ranked candidate. Empty files, parse
// failures, and empty mappings are deleted and reported as a miss.
func (st *Store) loadCandidate(path string) (Record, bool) {
	info, err := st.fsys.Stat(path)
	if err != nil {
		return nil, false
	}

	if info.Size() == 0 {
		st.log.Debug().Str("path", path).Msg("empty sidecar candidate, removed")
		_ = st.fsys.Remove(path)

		return nil, false
	}

	raw, err := st.fsys.ReadFile(path)
	if err == nil {
		parsed, parseErr := lualit.Unmarshal(raw)
		if parseErr == nil {
			if rec, ok := parsed.(map[string]any); ok && len(rec) > 0 {
				return Record(rec), true
			}
		}
	}

	st.log.Debug().Str("path", path).Msg("invalid sidecar candidate, removed")
	_ = st.fsys.Remove(path)

	return nil, false
}

// candidateSlots lists every location a settings record may live in, most
// authoritative first. Slot position is the ranking tiebreaker. A location
// whose primary path cannot be derived (unset central or history root)
// contributes neither its primary nor its ".old" slot.
func (s *Session) candidateSlots() []string {
	if s.docPath == "" {
		return nil
	}

	slots := make([]string, 0, 8)

	addPair := func(primary string) {
		if primary != "" {
			slots = append(slots, primary, primary+backupSuffix)
		}
	}

	addPair(s.docSidecarFile)
	slots = append(slots, s.docPath+luaSuffix) // legacy same-folder file
	addPair(s.centralSidecarFile)
	addPair(s.historyFile)

	return append(slots, s.docPath+legacyThirdPartySuffix)
}

// DocPath returns the document path this session was opened for.
func (s *Session) DocPath() string {
	return s.docPath
}

// Record returns the loaded settings record for in-place mutation.
func (s *Session) Record() Record {
	return s.data
}

// SourcePath returns the candidate the record was loaded from, if any.
func (s *Session) SourcePath() (string, bool) {
	return s.sourcePath, s.sourcePath != ""
}

// Candidates returns the ordered candidate list from the last open.
func (s *Session) Candidates() []Candidate {
	return s.candidates
}

// DocSidecarFile returns the first existing sidecar file for the document:
// the doc-folder sidecar, then the central sidecar, then (unless
// suppressed) the legacy history file.
func (s *Session) DocSidecarFile(allowLegacy bool) (string, bool) {
	probes := []string{s.docSidecarFile, s.centralSidecarFile}
	if allowLegacy {
		probes = append(probes, s.historyFile)
	}

	for _, path := range probes {
		if path == "" {
			continue
		}

		if ok, _ := s.store.fsys.Exists(path); ok {
			return path, true
		}
	}

	return "", false
}
