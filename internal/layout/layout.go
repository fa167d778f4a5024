package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"shotsync/internal/services"
	"shotsync/internal/shotcode"
)

// Subdirs is the fixed set of directories created under every shot folder.
var Subdirs = []string{
	"plate",
	"prep",
	"roto",
	"comp/nk",
	"comp/preview",
	"comp/render",
}

// WorkDir is the subdirectory holding working files.
const WorkDir = "comp/nk"

// ShotFolder returns root/show/[episode]/[sequence]/shot. An empty show is
// skipped so callers can build paths relative to a show directory.
func ShotFolder(root string, id shotcode.Identity) string {
	parts := make([]string, 0, 5)
	parts = append(parts, root)
	if id.Show != "" {
		parts = append(parts, id.Show)
	}
	parts = append(parts, id.Components()...)
	return filepath.Join(parts...)
}

// EnsureLayout creates the fixed subdirectory set under folder. Directories
// that already exist, including ones created concurrently by another
// process, are accepted.
func EnsureLayout(folder string) error {
	if strings.TrimSpace(folder) == "" {
		return services.Wrap(services.ErrFilesystem, services.StageFilesystem, "ensure layout", "shot folder is empty", nil)
	}
	for _, sub := range Subdirs {
		dir := filepath.Join(folder, filepath.FromSlash(sub))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrFilesystem, services.StageFilesystem, "ensure layout",
				fmt.Sprintf("create %s", dir), err)
		}
	}
	return nil
}

// WorkingFileName returns <code>_comp_v001.<ext>.
func WorkingFileName(code, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "nk"
	}
	return code + "_comp_v001." + ext
}

// WorkingFilePath returns the seed working file location inside folder.
func WorkingFilePath(folder, code, ext string) string {
	return filepath.Join(folder, filepath.FromSlash(WorkDir), WorkingFileName(code, ext))
}

// unsafeNameChars are rejected in show names on every platform shows are
// shared from.
const unsafeNameChars = `/\:*?"<>|`

// ValidateShow rejects show names that cannot be used as a single directory.
func ValidateShow(show string) error {
	if show == "" {
		return nil
	}
	valid := show == strings.TrimSpace(show) && show != "." && show != ".." &&
		!strings.ContainsAny(show, unsafeNameChars) &&
		!strings.ContainsFunc(show, unicode.IsControl)
	if !valid {
		return services.Wrap(services.ErrFilesystem, services.StageFilesystem, "validate show",
			fmt.Sprintf("show %q is not a valid directory name", show), nil)
	}
	return nil
}
