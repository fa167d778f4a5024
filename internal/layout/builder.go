package layout

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"shotsync/internal/config"
	"shotsync/internal/logging"
	"shotsync/internal/services"
	"shotsync/internal/shotcode"
)

// Builder applies the configured show root and template rules.
type Builder struct {
	root              string
	templatePath      string
	templateSourceDir string
	seed              SeedOptions
	logger            *slog.Logger
}

// NewBuilder constructs a Builder from cfg.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	return &Builder{
		root:              cfg.Paths.ShowsDir,
		templatePath:      cfg.Layout.TemplatePath,
		templateSourceDir: cfg.Paths.TemplateSourceDir,
		seed: SeedOptions{
			Placeholder:      cfg.Layout.Placeholder,
			Extension:        cfg.Layout.Extension,
			StripGroupMarker: cfg.Layout.StripGroupMarker,
		},
		logger: logging.NewComponentLogger(logger, "layout"),
	}
}

// Root returns the show root.
func (b *Builder) Root() string { return b.root }

// ShotFolder returns the folder for id under the show root.
func (b *Builder) ShotFolder(id shotcode.Identity) string {
	return ShotFolder(b.root, id)
}

// ShowTemplatePath returns where the working-file template for show lives.
func (b *Builder) ShowTemplatePath(show string) string {
	return filepath.Join(b.root, show, filepath.FromSlash(b.templatePath))
}

// WorkingFilePath returns the seed file location for id without touching disk.
func (b *Builder) WorkingFilePath(id shotcode.Identity) string {
	return WorkingFilePath(b.ShotFolder(id), id.Code(), b.seed.Extension)
}

// Result is the local outcome for one shot.
type Result struct {
	Folder string     `json:"folder"`
	Seed   SeedResult `json:"seed"`
	// Warnings carries non-fatal conditions such as a missing template.
	Warnings []string `json:"warnings,omitempty"`
}

// Prepare creates the shot folder tree and seeds its working file. A missing
// template is logged and reported as a warning, not an error.
func (b *Builder) Prepare(ctx context.Context, id shotcode.Identity) (Result, error) {
	if err := ValidateShow(id.Show); err != nil {
		return Result{}, err
	}
	folder := b.ShotFolder(id)
	result := Result{Folder: folder}

	if err := EnsureLayout(folder); err != nil {
		return result, err
	}

	seed, err := b.SeedWorkingFile(ctx, id.Show, id.Code(), folder)
	result.Seed = seed
	if err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			result.Warnings = append(result.Warnings, err.Error())
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// SeedWorkingFile seeds the working file for code in folder from show's
// template. The ErrTemplateMissing warning is logged before being returned.
func (b *Builder) SeedWorkingFile(ctx context.Context, show, code, folder string) (SeedResult, error) {
	templatePath := b.ShowTemplatePath(show)
	seed, err := SeedWorkingFile(code, folder, templatePath, b.seed)
	logger := logging.WithContext(ctx, b.logger).With(
		logging.String(logging.FieldShow, show),
		logging.String(logging.FieldShotCode, code),
	)
	switch {
	case errors.Is(err, services.ErrTemplateMissing):
		logging.WarnWithContext(logger, "working file template missing; wrote stub", "template_missing",
			logging.String("template", templatePath),
			logging.String("path", seed.Path),
			logging.String(logging.FieldErrorHint, "run init-show or place a template at the show's template path"),
			logging.String(logging.FieldImpact, "shot working file starts empty"),
		)
	case err != nil:
		return seed, err
	case seed.Created:
		logger.Info("working file seeded", logging.String("path", seed.Path), logging.String("template", templatePath))
	default:
		logger.Debug("working file already present", logging.String("path", seed.Path))
	}
	return seed, err
}
