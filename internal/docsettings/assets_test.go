package docsettings_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pagemark/sidecar/internal/docsettings"
)

func Test_CustomCoverFile_Caches_Lookup_Until_Reset(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	session := store.Open(doc)

	if _, ok := session.CustomCoverFile(); ok {
		t.Fatal("found a cover before one exists")
	}

	cover := filepath.Join(cfg.SidecarDir(doc, docsettings.PlaceDocFolder), "cover.jpg")
	writeSidecar(t, cover, "jpeg bytes")

	// The absent result is cached.
	if _, ok := session.CustomCoverFile(); ok {
		t.Error("cached absent lookup returned a cover")
	}

	session.ResetCustomCoverCache()

	got, ok := session.CustomCoverFile()
	if !ok || got != cover {
		t.Errorf("cover = %q, %v; want %q after reset", got, ok, cover)
	}
}

func Test_SaveCustomCover_Lowercases_The_Source_Extension(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	src := filepath.Join(t.TempDir(), "Art.JPG")
	if err := os.WriteFile(src, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	session := store.Open(doc)

	err := session.SaveCustomCover(src)
	if err != nil {
		t.Fatalf("save cover: %v", err)
	}

	want := filepath.Join(cfg.SidecarDir(doc, docsettings.PlaceDocFolder), "cover.jpg")

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read cover: %v", err)
	}

	if !bytes.Equal(data, []byte("jpeg bytes")) {
		t.Errorf("cover content = %q", data)
	}

	got, ok := session.CustomCoverFile()
	if !ok || got != want {
		t.Errorf("cover lookup = %q, %v; want %q", got, ok, want)
	}
}

func Test_SaveCustomCover_Pins_The_Resolved_Sidecar_Directory(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	// Settings already live centrally, so assets must colocate there even
	// in doc-folder mode.
	centralFile := cfg.SidecarFile(doc, docsettings.PlaceCentralDir)
	writeSidecar(t, centralFile, "return { [\"a\"] = 1 }\n")

	src := filepath.Join(t.TempDir(), "art.png")
	if err := os.WriteFile(src, []byte("png bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	session := store.Open(doc)

	err := session.SaveCustomCover(src)
	if err != nil {
		t.Fatalf("save cover: %v", err)
	}

	want := filepath.Join(filepath.Dir(centralFile), "cover.png")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("cover not colocated with settings: %v", err)
	}

	docDir := cfg.SidecarDir(doc, docsettings.PlaceDocFolder)
	if _, err := os.Stat(docDir); !os.IsNotExist(err) {
		t.Error("doc-folder sidecar dir was created for the cover")
	}
}

func Test_SaveCustomMetadata_Writes_Readable_File_And_Cleans_Old_Copy(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	// An older copy in the central tree moves to the preferred directory.
	oldPath := filepath.Join(cfg.SidecarDir(doc, docsettings.PlaceCentralDir), "custom_metadata.lua")
	writeSidecar(t, oldPath, "return { [\"title\"] = \"stale\" }\n")

	session := store.Open(doc)

	err := session.SaveCustomMetadata(docsettings.Record{"title": "Fixed Title"})
	if err != nil {
		t.Fatalf("save metadata: %v", err)
	}

	newPath := filepath.Join(cfg.SidecarDir(doc, docsettings.PlaceDocFolder), "custom_metadata.lua")

	raw, err := os.ReadFile(newPath)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}

	if !strings.HasPrefix(string(raw), "-- we can read Lua syntax here!\nreturn {") {
		t.Errorf("unexpected file prefix:\n%s", raw)
	}

	if !strings.Contains(string(raw), `["title"] = "Fixed Title"`) {
		t.Errorf("metadata content missing title:\n%s", raw)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("old metadata copy survived the save")
	}

	got, ok := session.CustomMetadataFile()
	if !ok || got != newPath {
		t.Errorf("metadata lookup = %q, %v; want %q", got, ok, newPath)
	}
}

func Test_Flush_Migrates_Assets_Next_To_The_Written_File(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	centralDir := cfg.SidecarDir(doc, docsettings.PlaceCentralDir)
	writeSidecar(t, filepath.Join(centralDir, "cover.png"), "png bytes")
	writeSidecar(t, filepath.Join(centralDir, "custom_metadata.lua"), "return { [\"title\"] = \"x\" }\n")

	session := store.Open(doc)
	session.Record().SaveSetting("k", "v")

	dir, err := session.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	docDir := cfg.SidecarDir(doc, docsettings.PlaceDocFolder)
	if dir != docDir {
		t.Fatalf("flush dir = %q, want %q", dir, docDir)
	}

	for _, name := range []string{"cover.png", "custom_metadata.lua"} {
		if _, err := os.Stat(filepath.Join(docDir, name)); err != nil {
			t.Errorf("asset %s not migrated: %v", name, err)
		}

		if _, err := os.Stat(filepath.Join(centralDir, name)); !os.IsNotExist(err) {
			t.Errorf("asset %s left behind in central dir", name)
		}
	}

	if _, err := os.Stat(centralDir); !os.IsNotExist(err) {
		t.Error("emptied central sidecar dir survived")
	}
}

func Test_Delete_Custom_Assets(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	docDir := cfg.SidecarDir(doc, docsettings.PlaceDocFolder)
	cover := filepath.Join(docDir, "cover.gif")
	metadata := filepath.Join(docDir, "custom_metadata.lua")

	writeSidecar(t, cover, "gif bytes")
	writeSidecar(t, metadata, "return { [\"title\"] = \"x\" }\n")

	session := store.Open(doc)

	session.DeleteCustomCover()

	if _, err := os.Stat(cover); !os.IsNotExist(err) {
		t.Error("cover survived deletion")
	}

	if _, ok := session.CustomCoverFile(); ok {
		t.Error("deleted cover still resolves")
	}

	session.DeleteCustomMetadata()

	if _, err := os.Stat(metadata); !os.IsNotExist(err) {
		t.Error("metadata survived deletion")
	}
}

func Test_UpdateLocation_Moves_The_Whole_Store(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	session := store.Open(doc)
	session.Record().SaveSetting("last_page", int64(7))

	if _, err := session.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	oldDir := cfg.SidecarDir(doc, docsettings.PlaceDocFolder)
	writeSidecar(t, filepath.Join(oldDir, "cover.jpg"), "jpeg bytes")
	writeSidecar(t, filepath.Join(oldDir, "custom_metadata.lua"), "return { [\"title\"] = \"x\" }\n")

	newDoc := filepath.Join(filepath.Dir(doc), "renamed.pdf")

	err := store.UpdateLocation(doc, newDoc, false)
	if err != nil {
		t.Fatalf("update location: %v", err)
	}

	moved := store.Open(newDoc)

	want := docsettings.Record{"doc_path": newDoc, "last_page": int64(7)}
	if diff := cmp.Diff(want, moved.Record()); diff != "" {
		t.Errorf("moved record mismatch (-want +got):\n%s", diff)
	}

	newDir := cfg.SidecarDir(newDoc, docsettings.PlaceDocFolder)
	for _, name := range []string{"cover.jpg", "custom_metadata.lua"} {
		if _, err := os.Stat(filepath.Join(newDir, name)); err != nil {
			t.Errorf("asset %s missing at new location: %v", name, err)
		}
	}

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old sidecar dir survived the move")
	}
}

func Test_UpdateLocation_Copy_Keeps_The_Original(t *testing.T) {
	t.Parallel()

	store, cfg, doc := newTestStore(t, docsettings.PlaceDocFolder)

	session := store.Open(doc)
	session.Record().SaveSetting("last_page", int64(7))

	if _, err := session.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	newDoc := filepath.Join(filepath.Dir(doc), "copy.pdf")

	err := store.UpdateLocation(doc, newDoc, true)
	if err != nil {
		t.Fatalf("update location: %v", err)
	}

	for _, path := range []string{
		cfg.SidecarFile(doc, docsettings.PlaceDocFolder),
		cfg.SidecarFile(newDoc, docsettings.PlaceDocFolder),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("sidecar %s missing: %v", path, err)
		}
	}

	copied := store.Open(newDoc)
	if got := copied.Record().ReadSetting("last_page"); got != int64(7) {
		t.Errorf("last_page = %v, want 7", got)
	}
}
