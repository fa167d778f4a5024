package layout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shotsync/internal/fileutil"
	"shotsync/internal/logging"
	"shotsync/internal/services"
)

// ShowDirs is the skeleton created under every new show.
var ShowDirs = []string{
	"assets/char",
	"assets/env",
	"assets/prop",
	"assets/tex",
	"assets/lookdev",
	"plates/ingest_log",
	"editorial/offline",
	"editorial/conform",
	"editorial/reference",
	"editorial/timeline",
	"dailies",
	"deliveries/season_master",
	"exchange/inbound",
	"exchange/outbound",
	"exchange/archive",
	"exchange/nda",
	"config/env",
	"config/ocio",
	"config/luts",
}

// ProjectFile is the per-show metadata file name.
const ProjectFile = "project.yml"

// ProjectMeta is the content of project.yml.
type ProjectMeta struct {
	Show           string `yaml:"show"`
	FPS            string `yaml:"fps"`
	Resolution     string `yaml:"resolution"`
	Colorspace     string `yaml:"colorspace"`
	OCIOConfig     string `yaml:"ocio_config"`
	GrainProfile   string `yaml:"grain_profile"`
	DeliveryFormat string `yaml:"delivery_format"`
	PreviewFormat  string `yaml:"preview_format"`
}

// DefaultProjectMeta returns the metadata written for a new show rooted at showRoot.
func DefaultProjectMeta(show, showRoot string) ProjectMeta {
	return ProjectMeta{
		Show:           show,
		FPS:            "23.976",
		Resolution:     "1920x1080",
		Colorspace:     "ACEScg",
		OCIOConfig:     filepath.Join(showRoot, "config", "ocio", "config.ocio"),
		GrainProfile:   "film_stock_A",
		DeliveryFormat: "EXR16",
		PreviewFormat:  "mov_h264",
	}
}

// ReadProjectMeta loads project.yml from showRoot.
func ReadProjectMeta(showRoot string) (ProjectMeta, error) {
	var meta ProjectMeta
	data, err := os.ReadFile(filepath.Join(showRoot, ProjectFile))
	if err != nil {
		return meta, err
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse %s: %w", ProjectFile, err)
	}
	return meta, nil
}

// ShowResult summarizes InitShow.
type ShowResult struct {
	Root           string   `json:"root"`
	ProjectCreated bool     `json:"project_created"`
	Copied         []string `json:"copied,omitempty"`
	Skipped        []string `json:"skipped,omitempty"`
}

// InitShow creates the show skeleton, writes project.yml when absent, and
// copies pipeline templates from the template source directory without
// replacing files already in the show. Safe to run repeatedly.
func (b *Builder) InitShow(ctx context.Context, show string) (ShowResult, error) {
	show = strings.TrimSpace(show)
	if show == "" {
		return ShowResult{}, services.Wrap(services.ErrConfiguration, "", "init show", "show is required", nil)
	}
	if err := ValidateShow(show); err != nil {
		return ShowResult{}, err
	}
	showRoot := filepath.Join(b.root, show)
	result := ShowResult{Root: showRoot}
	logger := logging.WithContext(ctx, b.logger).With(logging.String(logging.FieldShow, show))

	for _, dir := range ShowDirs {
		path := filepath.Join(showRoot, filepath.FromSlash(dir))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return result, services.Wrap(services.ErrFilesystem, services.StageFilesystem, "init show",
				fmt.Sprintf("create %s", path), err)
		}
	}

	data, err := yaml.Marshal(DefaultProjectMeta(show, showRoot))
	if err != nil {
		return result, fmt.Errorf("encode %s: %w", ProjectFile, err)
	}
	created, err := fileutil.WriteIfAbsent(filepath.Join(showRoot, ProjectFile), data, 0o644)
	if err != nil {
		return result, services.Wrap(services.ErrFilesystem, services.StageFilesystem, "init show",
			"write "+ProjectFile, err)
	}
	result.ProjectCreated = created

	if err := b.copyTemplates(showRoot, &result); err != nil {
		return result, err
	}
	if _, err := os.Stat(b.ShowTemplatePath(show)); errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "show has no working file template", "template_missing",
			logging.String("template", b.ShowTemplatePath(show)),
			logging.String("template_source_dir", b.templateSourceDir),
			logging.String(logging.FieldErrorHint, "set paths.template_source_dir or copy the template manually"),
			logging.String(logging.FieldImpact, "new shots get a stub working file"),
		)
	}

	logger.Info("show initialized",
		logging.String("root", showRoot),
		logging.Bool("project_created", result.ProjectCreated),
		logging.Int("templates_copied", len(result.Copied)))
	return result, nil
}

// copyTemplates copies every regular file in the template source directory
// next to the show's working-file template.
func (b *Builder) copyTemplates(showRoot string, result *ShowResult) error {
	if strings.TrimSpace(b.templateSourceDir) == "" {
		return nil
	}
	entries, err := os.ReadDir(b.templateSourceDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrFilesystem, services.StageFilesystem, "copy templates",
			"read "+b.templateSourceDir, err)
	}
	destDir := filepath.Dir(filepath.Join(showRoot, filepath.FromSlash(b.templatePath)))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, services.StageFilesystem, "copy templates",
			"create "+destDir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		src := filepath.Join(b.templateSourceDir, entry.Name())
		dst := filepath.Join(destDir, entry.Name())
		copied, err := fileutil.CopyIfAbsent(src, dst, 0o644)
		if err != nil {
			return services.Wrap(services.ErrFilesystem, services.StageFilesystem, "copy templates",
				fmt.Sprintf("copy %s", src), err)
		}
		if copied {
			result.Copied = append(result.Copied, dst)
		} else {
			result.Skipped = append(result.Skipped, dst)
		}
	}
	return nil
}
