package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/abramin/callmap/internal/config"
)

// LoadMode defines the packages.Load mode required for call-graph analysis.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedModule

// Loader loads the Go packages of the analyzed directory and classifies
// their files as analyzable, excluded, or generated.
type Loader struct {
	cfg        *config.Config
	projectDir string
	fset       *token.FileSet
	pkgs       []*packages.Package

	excluded  map[string]bool
	generated map[string]bool
}

// NewLoader creates a new package loader.
func NewLoader(cfg *config.Config, projectDir string) *Loader {
	return &Loader{
		cfg:        cfg,
		projectDir: projectDir,
		fset:       token.NewFileSet(),
		excluded:   make(map[string]bool),
		generated:  make(map[string]bool),
	}
}

// Load loads all Go packages from the project directory.
func (l *Loader) Load() error {
	cfg := &packages.Config{
		Mode: LoadMode,
		Dir:  l.projectDir,
		Fset: l.fset,
	}

	// Load all packages in the directory tree
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return fmt.Errorf("loading packages: %w", err)
	}

	var filtered []*packages.Package
	for _, pkg := range pkgs {
		if l.shouldExcludePackage(pkg) {
			continue
		}
		filtered = append(filtered, pkg)
	}
	l.pkgs = filtered

	// Classify every syntax file once so the resolver can answer
	// generated/excluded queries by plain map lookup.
	for _, pkg := range l.pkgs {
		for _, file := range pkg.Syntax {
			path := l.fset.Position(file.Pos()).Filename
			if l.shouldExcludeFile(path) {
				l.excluded[path] = true
				continue
			}
			if ast.IsGenerated(file) || l.matchesGeneratedGlob(path) {
				l.generated[path] = true
			}
		}
	}

	// Check for loading errors
	var errs []string
	packages.Visit(l.pkgs, nil, func(pkg *packages.Package) {
		for _, err := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, err.Msg))
		}
	})
	if len(errs) > 0 {
		// Log errors but continue - some errors are acceptable
		fmt.Printf("Warning: %d package loading errors\n", len(errs))
		for _, err := range errs[:min(5, len(errs))] {
			fmt.Printf("  - %s\n", err)
		}
		if len(errs) > 5 {
			fmt.Printf("  ... and %d more\n", len(errs)-5)
		}
	}

	return nil
}

// shouldExcludePackage checks if a package sits under an excluded directory.
func (l *Loader) shouldExcludePackage(pkg *packages.Package) bool {
	dir := packageDir(pkg)
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(l.projectDir, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, excluded := range l.cfg.Exclude.Dirs {
			if part == excluded {
				return true
			}
		}
	}
	return false
}

// shouldExcludeFile checks if a file is excluded from analysis by config.
func (l *Loader) shouldExcludeFile(file string) bool {
	for _, pattern := range l.cfg.Exclude.FilesGlob {
		if matchesGlob(file, pattern) {
			return true
		}
	}
	return false
}

// matchesGeneratedGlob checks the configured generated-code globs.
func (l *Loader) matchesGeneratedGlob(file string) bool {
	for _, pattern := range l.cfg.Generated.Globs {
		if matchesGlob(file, pattern) {
			return true
		}
	}
	return false
}

// matchesGlob performs a simplified glob match.
func matchesGlob(path, pattern string) bool {
	// Handle **/ prefix
	if strings.HasPrefix(pattern, "**/") {
		suffix := pattern[3:]
		return matchesSuffix(path, suffix)
	}
	// Simple wildcard match
	matched, _ := filepath.Match(pattern, filepath.Base(path))
	return matched
}

// matchesSuffix checks if path ends with the given suffix pattern.
func matchesSuffix(path, suffix string) bool {
	// Handle patterns like *.pb.go
	if strings.HasPrefix(suffix, "*") {
		ext := suffix[1:] // e.g., ".pb.go"
		return strings.HasSuffix(path, ext)
	}
	// Handle patterns with an inner wildcard like zz_generated*.go
	if i := strings.Index(suffix, "*"); i >= 0 {
		prefix, rest := suffix[:i], suffix[i+1:]
		base := filepath.Base(path)
		return strings.HasPrefix(base, prefix) && strings.HasSuffix(base, rest)
	}
	return strings.HasSuffix(path, suffix)
}

// Packages returns the loaded packages.
func (l *Loader) Packages() []*packages.Package {
	return l.pkgs
}

// FileSet returns the file set used for parsing.
func (l *Loader) FileSet() *token.FileSet {
	return l.fset
}

// ExcludedFile reports whether the analysis skips this file entirely.
func (l *Loader) ExcludedFile(path string) bool {
	return l.excluded[path]
}

// GeneratedFile reports whether this file holds generated code.
func (l *Loader) GeneratedFile(path string) bool {
	return l.generated[path]
}

// packageDir returns the directory of a package.
func packageDir(pkg *packages.Package) string {
	if len(pkg.GoFiles) > 0 {
		return filepath.Dir(pkg.GoFiles[0])
	}
	if len(pkg.OtherFiles) > 0 {
		return filepath.Dir(pkg.OtherFiles[0])
	}
	return ""
}
