// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
)

// Asdf activates by sourcing asdf's init script and running
// `asdf exec ruby`. Sourcing is mandatory because asdf's activation state
// lives in shell functions, so this strategy always goes through the
// interactive shell and is unavailable when no shell is configured.
type Asdf struct {
	h *Host
}

// NewAsdf builds the asdf strategy.
func NewAsdf(h *Host) *Asdf { return &Asdf{h: h} }

// ID implements Strategy.
func (s *Asdf) ID() config.ManagerID { return config.ManagerAsdf }

func (s *Asdf) scriptCandidates() []string {
	var candidates []string
	if home := s.h.Home(); home != "" {
		candidates = append(candidates, filepath.Join(home, ".asdf", "asdf.sh"))
	}
	return append(candidates,
		"/opt/homebrew/opt/asdf/libexec/asdf.sh",
		"/usr/local/opt/asdf/libexec/asdf.sh",
	)
}

// Detect implements Strategy.
func (s *Asdf) Detect(ctx context.Context) DetectionResult {
	if configured, ok := s.h.Config.ManagerPath(config.ManagerAsdf); ok {
		return s.h.detectExecutable(ctx, config.ManagerAsdf, "asdf", []string{s.h.ExpandHome(configured)})
	}
	if script, ok := firstExisting(ctx, s.scriptCandidates(), nil); ok {
		return DetectedAt(script)
	}
	return DetectedNone()
}

// Activate implements Strategy.
func (s *Asdf) Activate(ctx context.Context) (*activation.Result, error) {
	script, err := s.resolveScript(ctx)
	if err != nil {
		return nil, err
	}
	line := ". " + script + " && asdf exec ruby"
	if pin, ok := toolVersionsRuby(s.h.BundleRoot); ok {
		// Pin the version explicitly so activation matches the directory
		// even when the sourced shell starts with another ruby selected.
		line = ". " + script + " && ASDF_RUBY_VERSION=" + pin + " asdf exec ruby"
	}
	return s.h.runProbeLine(ctx, line)
}

// toolVersionsRuby reads the ruby entry out of the directory's
// .tool-versions file, if any. Entries that do not look like a version are
// ignored rather than interpolated into the activation line.
func toolVersionsRuby(dir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, ".tool-versions"))
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "ruby" {
			continue
		}
		if _, ok := ParseVersionSpec(fields[1]); ok {
			return fields[1], true
		}
	}
	return "", false
}

func (s *Asdf) resolveScript(ctx context.Context) (string, error) {
	return s.h.resolveExecutable(ctx, config.ManagerAsdf, "asdf.sh", s.scriptCandidates())
}
