package layout

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"shotsync/internal/fileutil"
	"shotsync/internal/services"
)

// SeedOptions control how a template becomes a working file.
type SeedOptions struct {
	// Placeholder is replaced with the shot code wherever it appears.
	Placeholder string
	// Extension of the working file, without the dot.
	Extension string
	// StripGroupMarker starts a block, ending at the next end_group line,
	// that is dropped from the template.
	StripGroupMarker string
}

// SeedResult describes the outcome of SeedWorkingFile.
type SeedResult struct {
	Path         string `json:"path"`
	Created      bool   `json:"created"`
	TemplateUsed bool   `json:"template_used"`
	Template     string `json:"template,omitempty"`
}

// SeedWorkingFile writes <folder>/comp/nk/<code>_comp_v001.<ext> unless it
// already exists. The content comes from templatePath after sanitizing and
// placeholder substitution; when the template is absent a stub is written
// and the returned error wraps services.ErrTemplateMissing alongside a valid
// result. Callers should treat that error as a warning.
func SeedWorkingFile(code, folder, templatePath string, opts SeedOptions) (SeedResult, error) {
	target := WorkingFilePath(folder, code, opts.Extension)
	result := SeedResult{Path: target, Template: templatePath}

	if _, err := os.Stat(target); err == nil {
		return result, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return result, services.Wrap(services.ErrFilesystem, services.StageFilesystem, "seed working file",
			fmt.Sprintf("stat %s", target), err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return result, services.Wrap(services.ErrFilesystem, services.StageFilesystem, "seed working file",
			fmt.Sprintf("create %s", filepath.Dir(target)), err)
	}

	content, missing, err := renderTemplate(code, templatePath, opts)
	if err != nil {
		return result, err
	}

	written, err := fileutil.WriteIfAbsent(target, []byte(content), 0o644)
	if err != nil {
		return result, services.Wrap(services.ErrFilesystem, services.StageFilesystem, "seed working file",
			fmt.Sprintf("write %s", target), err)
	}
	result.Created = written
	result.TemplateUsed = written && !missing
	if written && missing {
		return result, services.Wrap(services.ErrTemplateMissing, services.StageFilesystem, "seed working file",
			fmt.Sprintf("template %s not found; wrote stub", templatePath), nil)
	}
	return result, nil
}

func renderTemplate(code, templatePath string, opts SeedOptions) (string, bool, error) {
	if strings.TrimSpace(templatePath) == "" {
		return stubContent(code), true, nil
	}
	file, err := os.Open(templatePath)
	if errors.Is(err, fs.ErrNotExist) {
		return stubContent(code), true, nil
	}
	if err != nil {
		return "", false, services.Wrap(services.ErrFilesystem, services.StageFilesystem, "read template",
			fmt.Sprintf("open %s", templatePath), err)
	}
	defer file.Close()

	var b strings.Builder
	reader := bufio.NewReader(file)
	skipping := false
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			if opts.StripGroupMarker != "" && strings.Contains(line, opts.StripGroupMarker) {
				skipping = true
			}
			if !skipping {
				b.WriteString(line)
			}
			if skipping && strings.Contains(line, "end_group") {
				skipping = false
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return "", false, services.Wrap(services.ErrFilesystem, services.StageFilesystem, "read template",
				fmt.Sprintf("read %s", templatePath), readErr)
		}
	}

	content := b.String()
	if opts.Placeholder != "" {
		content = strings.ReplaceAll(content, opts.Placeholder, code)
	}
	return content, false, nil
}

func stubContent(code string) string {
	return fmt.Sprintf("# shotsync working file\n# SHOT_CODE=%s\n", code)
}
