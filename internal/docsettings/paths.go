package docsettings

import (
	"path/filepath"
	"strings"
)

const (
	sidecarDirSuffix       = ".sdr"
	sidecarBasename        = "metadata"
	luaSuffix              = ".lua"
	backupSuffix           = ".old"
	customMetadataFilename = "custom_metadata.lua"
	legacyThirdPartySuffix = ".kpdfview.lua"
	coverStem              = "cover"
)

// SidecarDir returns the sidecar directory for a document in the given
// placement mode: the document path with its final extension stripped plus
// ".sdr", prefixed with the central settings root for [PlaceCentralDir].
// Empty document paths derive empty results.
func (c Config) SidecarDir(docPath string, mode PlacementMode) string {
	if docPath == "" {
		return ""
	}

	base := strings.TrimSuffix(docPath, filepath.Ext(docPath))
	if mode == PlaceCentralDir {
		if c.SettingsDir == "" {
			return ""
		}

		base = filepath.Join(c.SettingsDir, base)
	}

	return base + sidecarDirSuffix
}

// SidecarFile returns the settings file inside the sidecar directory. The
// original extension is preserved in the name ("metadata.<ext>.lua") so
// same-stem documents of different types keep distinct sidecars.
func (c Config) SidecarFile(docPath string, mode PlacementMode) string {
	if docPath == "" {
		return ""
	}

	dir := c.SidecarDir(docPath, mode)
	if dir == "" {
		return ""
	}

	ext := strings.TrimPrefix(filepath.Ext(docPath), ".")

	return filepath.Join(dir, sidecarBasename+"."+ext+luaSuffix)
}

// HistoryPath returns the legacy flat history file for a document.
func (c Config) HistoryPath(docPath string) string {
	if docPath == "" || c.HistoryDir == "" {
		return ""
	}

	return filepath.Join(c.HistoryDir, historyName(docPath))
}

// historyName escapes a document path into the legacy history naming
// scheme: every '/' becomes '#' and the escaped directory part is wrapped
// in brackets immediately before the basename.
//
// "/a/b/c.pdf" becomes "[#a#b#] c.pdf.lua". The exact character layout is
// load-bearing: [PathFromHistory] and [NameFromHistory] invert it.
func historyName(docPath string) string {
	dir, name := filepath.Split(docPath)
	escaped := strings.ReplaceAll(dir, "/", "#")

	return "[" + escaped + "] " + name + luaSuffix
}

// PathFromHistory recovers the document's directory from a legacy history
// file name. Inputs not literally ending in ".lua" yield "" so ".lua.old"
// backups never parse as primaries.
func PathFromHistory(histName string) string {
	inner, ok := historyBracket(histName)
	if !ok || inner == "" {
		return ""
	}

	// A document directly under the root escapes to a bare "#".
	if inner == "#" {
		return "/"
	}

	// The escaped directory carries a trailing '#' from the path separator
	// before the basename; drop it before unescaping.
	return strings.ReplaceAll(inner[:len(inner)-1], "#", "/")
}

// NameFromHistory recovers the document's basename from a legacy history
// file name, or "" for inputs outside the scheme.
func NameFromHistory(histName string) string {
	inner, ok := historyBracket(histName)
	if !ok {
		return ""
	}

	start := len(inner) + 3 // "[", "]", " "
	end := len(histName) - len(luaSuffix)

	if start > end {
		return ""
	}

	return histName[start:end]
}

// historyBracket extracts the bracketed escaped-directory segment.
func historyBracket(histName string) (string, bool) {
	if !strings.HasSuffix(histName, luaSuffix) {
		return "", false
	}

	if len(histName) == 0 || histName[0] != '[' {
		return "", false
	}

	i := strings.IndexByte(histName, ']')
	if i < 0 {
		return "", false
	}

	return histName[1:i], true
}
