package metadata

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Background image aliases are legacy file-reference records. Fully
// decoding them is out of scope; instead the blob is scanned for an
// embedded path naming an image file, verified against the filesystem.
// The whole resolution is best-effort and never fails the load.

var (
	asciiRunPattern = regexp.MustCompile(`[ -~]{4,}`)
	imageExtPattern = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|tiff?|bmp|xpm)`)
	imageExtSuffix  = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|tiff?|bmp|xpm)$`)
)

// backgroundFolder is the conventional hidden subfolder holding a
// directory's background image.
const backgroundFolder = ".background"

// resolveBackgroundImage scans an alias blob for an image path and
// verifies it: absolute as-is, then relative to dir, then by basename in
// dir. When nothing in the blob resolves, the hidden background folder is
// tried for the first image it contains.
func resolveBackgroundImage(alias []byte, dir string) (string, bool) {
	for _, run := range asciiRunPattern.FindAllString(string(alias), -1) {
		for _, candidate := range pathCandidates(run) {
			if filepath.IsAbs(candidate) && fileExists(candidate) {
				return candidate, true
			}
			if p := filepath.Join(dir, candidate); fileExists(p) {
				return p, true
			}
			if p := filepath.Join(dir, filepath.Base(candidate)); fileExists(p) {
				return p, true
			}
		}
	}
	bgDir := filepath.Join(dir, backgroundFolder)
	if entries, err := os.ReadDir(bgDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && imageExtSuffix.MatchString(e.Name()) {
				return filepath.Join(bgDir, e.Name()), true
			}
		}
	}
	return "", false
}

// pathCandidates cuts a printable run down to the substring ending at the
// first image extension and normalizes HFS-style colon separators.
func pathCandidates(run string) []string {
	loc := imageExtPattern.FindStringIndex(run)
	if loc == nil {
		return nil
	}
	trimmed := run[:loc[1]]
	candidates := []string{trimmed}
	if strings.Contains(trimmed, ":") {
		candidates = append(candidates, strings.ReplaceAll(trimmed, ":", "/"))
	}
	return candidates
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
