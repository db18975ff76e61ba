package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abramin/callmap/internal/config"
	"github.com/abramin/callmap/internal/graph"
)

func TestMatchesGlob(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"foo.pb.go", "*.pb.go", true},
		{"foo.go", "*.pb.go", false},
		{"/path/to/foo.pb.go", "**/*.pb.go", true},
		{"/path/to/foo_gen.go", "**/*_gen.go", true},
		{"/path/to/foo.go", "**/*_gen.go", false},
		{"foo_mock.go", "**/*_mock.go", true},
		{"/path/to/zz_generated.deepcopy.go", "**/zz_generated*.go", true},
		{"/path/to/generated.go", "**/zz_generated*.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path+"_"+tt.pattern, func(t *testing.T) {
			got := matchesGlob(tt.path, tt.pattern)
			if got != tt.want {
				t.Errorf("matchesGlob(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestMatchesSuffix(t *testing.T) {
	tests := []struct {
		path   string
		suffix string
		want   bool
	}{
		{"foo.pb.go", "*.pb.go", true},
		{"foo.go", "*.pb.go", false},
		{"/path/to/file.pb.go", "*.pb.go", true},
		{"/path/to/zz_generated.kind.go", "zz_generated*.go", true},
	}

	for _, tt := range tests {
		t.Run(tt.path+"_"+tt.suffix, func(t *testing.T) {
			got := matchesSuffix(tt.path, tt.suffix)
			if got != tt.want {
				t.Errorf("matchesSuffix(%q, %q) = %v, want %v", tt.path, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestShouldExcludeFile(t *testing.T) {
	cfg := config.Default()
	cfg.Exclude.FilesGlob = []string{"**/*_string.go"}
	l := NewLoader(cfg, ".")

	if !l.shouldExcludeFile("/src/kind_string.go") {
		t.Error("expected kind_string.go to be excluded")
	}
	if l.shouldExcludeFile("/src/kind.go") {
		t.Error("expected kind.go to stay included")
	}
}

func TestMatchesGeneratedGlob(t *testing.T) {
	cfg := config.Default()
	l := NewLoader(cfg, ".")

	if !l.matchesGeneratedGlob("/src/api/service.pb.go") {
		t.Error("expected service.pb.go to match generated globs")
	}
	if l.matchesGeneratedGlob("/src/api/service.go") {
		t.Error("expected service.go to stay unmatched")
	}
}

// TestLoaderOnProject tests the loader on this project itself.
func TestLoaderOnProject(t *testing.T) {
	// Find project root (go up from test file location)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	// Go up two directories to get to project root
	projectRoot := filepath.Dir(filepath.Dir(wd))

	// Check if this is actually the project checkout
	if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); os.IsNotExist(err) {
		t.Skip("not running in a project checkout, skipping integration test")
	}

	cfg := config.Default()
	loader := NewLoader(cfg, projectRoot)

	if err := loader.Load(); err != nil {
		t.Fatalf("failed to load packages: %v", err)
	}

	pkgs := loader.Packages()
	if len(pkgs) == 0 {
		t.Error("expected at least one package")
	}

	// Regular source files are neither excluded nor generated
	if len(pkgs) > 0 && len(pkgs[0].GoFiles) > 0 {
		file := pkgs[0].GoFiles[0]
		if loader.ExcludedFile(file) {
			t.Errorf("expected %s to stay included", file)
		}
		if loader.GeneratedFile(file) {
			t.Errorf("expected %s to count as handwritten", file)
		}
	}
}

// TestBuildOnProject builds the call graph for this project itself.
func TestBuildOnProject(t *testing.T) {
	// Find project root
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	projectRoot := filepath.Dir(filepath.Dir(wd))

	if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); os.IsNotExist(err) {
		t.Skip("not running in a project checkout, skipping integration test")
	}

	cfg := config.Default()
	loader := NewLoader(cfg, projectRoot)

	if err := loader.Load(); err != nil {
		t.Fatalf("failed to load packages: %v", err)
	}

	res := NewResolver(loader)
	g := graph.New()
	b := NewBuilder(g, res, loader.FileSet(), discardLogger())

	fset := loader.FileSet()
	for _, pkg := range loader.Packages() {
		for _, file := range pkg.Syntax {
			path := fset.Position(file.Pos()).Filename
			if loader.ExcludedFile(path) {
				continue
			}
			if err := b.File(file); err != nil {
				t.Fatalf("failed to walk %s: %v", path, err)
			}
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("failed to link implementations: %v", err)
	}

	if g.NumCallables() == 0 {
		t.Error("expected at least one callable")
	}
	if g.NumStaticCalls() == 0 {
		t.Error("expected at least one static call")
	}

	if err := g.Expand(); err != nil {
		t.Fatalf("failed to expand: %v", err)
	}
	if err := g.Check(); err != nil {
		t.Errorf("expected a closed graph, got %v", err)
	}

	t.Logf("Built %d callables, %d definite and %d potential calls",
		g.NumCallables(), g.NumStaticCalls(), g.NumDynamicCalls())
}
