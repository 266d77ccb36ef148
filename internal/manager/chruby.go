// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/platform"
)

// Chruby activates a Ruby installed under chruby's conventional layout
// (~/.rubies, /opt/rubies). chruby itself never runs: the selected
// installation's ruby binary executes the probe directly, and the strategy
// rebuilds the PATH and gem environment chruby would have exported.
type Chruby struct {
	h *Host
	// spec pins the runtime version, bypassing the marker-file walk.
	// Set after a fallback selection; nil means walk from the bundle root.
	spec *VersionSpec
}

// NewChruby builds the chruby strategy. spec may be nil.
func NewChruby(h *Host, spec *VersionSpec) *Chruby {
	return &Chruby{h: h, spec: spec}
}

// ID implements Strategy.
func (s *Chruby) ID() config.ManagerID { return config.ManagerChruby }

// Detect reports the first installation root that exists.
func (s *Chruby) Detect(ctx context.Context) DetectionResult {
	if dir, ok := firstExisting(ctx, rubyInstallDirs(s.h.Home()), nil); ok {
		return DetectedAt(dir)
	}
	return DetectedNone()
}

// Activate implements Strategy.
func (s *Chruby) Activate(ctx context.Context) (*activation.Result, error) {
	spec := s.spec
	if spec == nil {
		found, err := FindVersionFile(s.h.BundleRoot)
		if err != nil {
			return nil, err
		}
		spec = found
	}
	dirs := rubyInstallDirs(s.h.Home())
	if spec == nil {
		return nil, &activation.NotFoundError{Tool: "ruby", Searched: dirs}
	}

	install, ok := matchInstalled(ScanInstalledRubies(dirs), *spec)
	if !ok {
		return nil, &activation.NotFoundError{Tool: spec.String(), Searched: dirs}
	}

	binDir := filepath.Join(install.Path, "bin")
	res, err := s.h.runProbe(ctx, []string{filepath.Join(binDir, "ruby")}, false)
	if err != nil {
		return nil, err
	}

	s.applyGemEnv(res, *spec)
	res.Env = platform.PrependPathDir(res.Env, binDir)
	return res, nil
}

// applyGemEnv rebuilds GEM_HOME/GEM_PATH the way chruby exports them.
// chruby's own default assumes X.Y-granular user gem directories; runtimes
// that report more than two gem paths use a patch-qualified directory as
// well, which must be reconstructed or user-installed gems go missing.
func (s *Chruby) applyGemEnv(res *activation.Result, spec VersionSpec) {
	if len(res.GemPaths) == 0 {
		return
	}
	if len(res.GemPaths) > 2 {
		engine := spec.Engine
		if engine == "" {
			engine = "ruby"
		}
		patchDir := filepath.Join(s.h.Home(), ".gem", engine, spec.Version)
		if !slices.Contains(res.GemPaths, patchDir) {
			res.GemPaths = append([]string{patchDir}, res.GemPaths...)
		}
	}
	res.Env["GEM_HOME"] = res.GemPaths[0]
	res.Env["GEM_PATH"] = strings.Join(res.GemPaths, string(filepath.ListSeparator))
}

// matchInstalled finds the installed runtime satisfying a version spec.
// An empty engine in either side means the default "ruby" engine.
func matchInstalled(installed []InstalledRuby, spec VersionSpec) (InstalledRuby, bool) {
	wantEngine := spec.Engine
	if wantEngine == "" {
		wantEngine = "ruby"
	}
	for _, ruby := range installed {
		engine := ruby.Engine
		if engine == "" {
			engine = "ruby"
		}
		if engine == wantEngine && ruby.Version == spec.Version {
			return ruby, true
		}
	}
	return InstalledRuby{}, false
}
