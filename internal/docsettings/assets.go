package docsettings

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/pagemark/sidecar/internal/fs"
	"github.com/pagemark/sidecar/internal/lualit"
)

// coverState is the tri-state cover lookup cache: the scan is expensive
// enough (directory listing) to run at most once per session until reset.
type coverState uint8

const (
	coverUnknown coverState = iota
	coverAbsent
	coverFound
)

type coverLookup struct {
	state coverState
	path  string
}

// CustomCoverFile returns the custom cover image for the document, if one
// exists in either placement mode's sidecar directory. The result is
// cached on the session; see [Session.ResetCustomCoverCache].
func (s *Session) CustomCoverFile() (string, bool) {
	if s.cover.state == coverUnknown {
		s.cover = s.lookupCover()
	}

	if s.cover.state == coverFound {
		return s.cover.path, true
	}

	return "", false
}

// ResetCustomCoverCache drops the cached cover lookup so the next
// [Session.CustomCoverFile] rescans the sidecar directories.
func (s *Session) ResetCustomCoverCache() {
	s.cover = coverLookup{}
}

// lookupCover scans the preferred placement mode's sidecar directory
// first, then the other mode's.
func (s *Session) lookupCover() coverLookup {
	first, second := s.docSidecarDir, s.centralSidecarDir
	if s.store.cfg.PlacementMode == PlaceCentralDir {
		first, second = second, first
	}

	for _, dir := range []string{first, second} {
		if dir == "" {
			continue
		}

		if path, ok := findCover(s.store.fsys, dir); ok {
			return coverLookup{state: coverFound, path: path}
		}
	}

	return coverLookup{state: coverAbsent}
}

// findCover returns the first directory entry whose stem is exactly
// "cover", whatever the image extension.
func findCover(fsys fs.FS, dir string) (string, bool) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == coverStem {
			return filepath.Join(dir, name), true
		}
	}

	return "", false
}

// CustomMetadataFile returns the metadata-override file, probing the
// doc-folder sidecar directory then the central one.
func (s *Session) CustomMetadataFile() (string, bool) {
	for _, dir := range []string{s.docSidecarDir, s.centralSidecarDir} {
		if dir == "" {
			continue
		}

		path := filepath.Join(dir, customMetadataFilename)
		if ok, _ := s.store.fsys.Exists(path); ok {
			return path, true
		}
	}

	return "", false
}

// assetTargetDirs lists the directories a custom asset may be written to,
// mirroring the flush target ordering so assets colocate with settings. A
// document that already resolved a sidecar file pins its directory.
func (s *Session) assetTargetDirs() []string {
	if path, ok := s.DocSidecarFile(false); ok {
		return []string{filepath.Dir(path)}
	}

	if s.docPath == "" {
		return nil
	}

	if s.store.cfg.PlacementMode == PlaceDocFolder {
		return []string{s.docSidecarDir, s.centralSidecarDir}
	}

	return []string{s.centralSidecarDir}
}

// SaveCustomCover copies the image at srcPath into the first writable
// sidecar directory as "cover.<lowercased source extension>".
func (s *Session) SaveCustomCover(srcPath string) error {
	fsys := s.store.fsys

	data, err := fsys.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read cover source: %w", err)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(srcPath), "."))
	name := coverStem + "." + ext

	for _, dir := range s.assetTargetDirs() {
		err = fsys.MkdirAll(dir, dirPerms)
		if err != nil {
			continue
		}

		target := filepath.Join(dir, name)

		err = fsys.WriteFileAtomic(target, data, filePerms)
		if err != nil {
			s.store.log.Debug().Str("path", target).Err(err).Msg("cover write failed, trying next target")

			continue
		}

		s.ResetCustomCoverCache()

		return nil
	}

	return ErrNoWritableLocation
}

// SaveCustomMetadata persists the metadata override into the first
// writable sidecar directory, using the same banner-and-literal format as
// settings but without backup rotation. A previous copy in a different
// directory is removed after the successful write, along with its
// directory if left empty.
func (s *Session) SaveCustomMetadata(rec Record) error {
	body, err := lualit.Marshal(map[string]any(rec))
	if err != nil {
		return fmt.Errorf("serialize custom metadata: %w", err)
	}

	fsys := s.store.fsys
	oldPath, hadOld := s.CustomMetadataFile()

	for _, dir := range s.assetTargetDirs() {
		err = fsys.MkdirAll(dir, dirPerms)
		if err != nil {
			continue
		}

		target := filepath.Join(dir, customMetadataFilename)

		f, err := fsys.Create(target)
		if err != nil {
			continue
		}

		err = writeSettings(f, body)
		if err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}

		if hadOld && oldPath != target {
			_ = fsys.Remove(oldPath)
			_ = fsys.Remove(filepath.Dir(oldPath)) // only succeeds if now empty
		}

		return nil
	}

	return ErrNoWritableLocation
}

// DeleteCustomCover removes the custom cover, if any, and invalidates the
// cached lookup.
func (s *Session) DeleteCustomCover() {
	if path, ok := s.CustomCoverFile(); ok {
		_ = s.store.fsys.Remove(path)
	}

	s.ResetCustomCoverCache()
}

// DeleteCustomMetadata removes the metadata-override file, if any.
func (s *Session) DeleteCustomMetadata() {
	if path, ok := s.CustomMetadataFile(); ok {
		_ = s.store.fsys.Remove(path)
	}
}

// migrateCustomAssets moves the custom cover and metadata override next to
// a just-written settings file. Each original is deleted only after its
// copy succeeded, so a failed copy never loses the asset.
func (s *Session) migrateCustomAssets(newDir string) {
	if path, ok := s.CustomCoverFile(); ok && filepath.Dir(path) != newDir {
		s.moveAsset(path, filepath.Join(newDir, filepath.Base(path)))
	}

	if path, ok := s.CustomMetadataFile(); ok && filepath.Dir(path) != newDir {
		s.moveAsset(path, filepath.Join(newDir, customMetadataFilename))
	}

	s.ResetCustomCoverCache()
}

func (s *Session) moveAsset(src, dst string) {
	fsys := s.store.fsys

	data, err := fsys.ReadFile(src)
	if err != nil {
		s.store.log.Debug().Str("path", src).Err(err).Msg("asset migration read failed")

		return
	}

	err = fsys.WriteFileAtomic(dst, data, filePerms)
	if err != nil {
		s.store.log.Debug().Str("path", dst).Err(err).Msg("asset migration write failed")

		return
	}

	_ = fsys.Remove(src)
	_ = fsys.Remove(filepath.Dir(src)) // only succeeds if now empty
}

// UpdateLocation moves (or, with copy set, duplicates) a document's entire
// sidecar store to the locations derived from newDocPath, e.g. after the
// document file itself was moved or renamed. Assets whose copy failed are
// spared from the old-location purge.
func (st *Store) UpdateLocation(docPath, newDocPath string, copy bool) error {
	if docPath == "" || newDocPath == "" {
		return nil
	}

	old := st.Open(docPath)
	dst := st.OpenCustomOnly(newDocPath)

	if _, ok := old.SourcePath(); ok {
		dst.data = Record(maps.Clone(map[string]any(old.data)))
		dst.data[keyDocPath] = newDocPath

		_, err := dst.flush(false)
		if err != nil {
			return fmt.Errorf("flush new location: %w", err)
		}
	}

	coverMoved := true

	if cover, ok := old.CustomCoverFile(); ok {
		err := dst.SaveCustomCover(cover)
		if err != nil {
			st.log.Warn().Str("path", cover).Err(err).Msg("cover not migrated")

			coverMoved = false
		}
	}

	metadataMoved := true

	if path, ok := old.CustomMetadataFile(); ok {
		err := st.copyCustomMetadata(path, dst)
		if err != nil {
			st.log.Warn().Str("path", path).Err(err).Msg("custom metadata not migrated")

			metadataMoved = false
		}
	}

	if !copy {
		old.purge("", PurgeSelection{
			Settings:       true,
			CustomCover:    coverMoved,
			CustomMetadata: metadataMoved,
		})
	}

	return nil
}

// copyCustomMetadata re-parses an existing override file and writes it
// through the destination session, validating the content on the way.
func (st *Store) copyCustomMetadata(path string, dst *Session) error {
	raw, err := st.fsys.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read custom metadata: %w", err)
	}

	parsed, err := lualit.Unmarshal(raw)
	if err != nil {
		return fmt.Errorf("parse custom metadata: %w", err)
	}

	rec, ok := parsed.(map[string]any)
	if !ok {
		return fmt.Errorf("parse custom metadata: %w: not a mapping", lualit.ErrSyntax)
	}

	return dst.SaveCustomMetadata(Record(rec))
}
