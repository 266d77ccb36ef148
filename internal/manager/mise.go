// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"

	toml "github.com/pelletier/go-toml/v2"
)

// miseConfigNames are the per-directory mise configuration files, checked
// in order.
var miseConfigNames = []string{".mise.toml", "mise.toml"}

// Mise activates through `mise x -- ruby`. When the bundle root carries a
// mise configuration pinning a ruby version, the pin is passed explicitly
// so activation matches what mise would pick in that directory.
type Mise struct {
	h *Host
}

// NewMise builds the mise strategy.
func NewMise(h *Host) *Mise { return &Mise{h: h} }

// ID implements Strategy.
func (s *Mise) ID() config.ManagerID { return config.ManagerMise }

func (s *Mise) candidates() []string {
	if home := s.h.Home(); home != "" {
		return []string{filepath.Join(home, ".local", "bin", "mise")}
	}
	return nil
}

// Detect implements Strategy.
func (s *Mise) Detect(ctx context.Context) DetectionResult {
	return s.h.detectExecutable(ctx, config.ManagerMise, "mise", s.candidates())
}

// Activate implements Strategy.
func (s *Mise) Activate(ctx context.Context) (*activation.Result, error) {
	mise, err := s.h.resolveExecutable(ctx, config.ManagerMise, "mise", s.candidates())
	if err != nil {
		return nil, err
	}

	tool := "ruby"
	if pinned, ok := misePinnedRuby(s.h.BundleRoot); ok {
		tool = "ruby@" + pinned
	}
	return s.h.runProbe(ctx, []string{mise, "x", tool, "--", "ruby"}, false)
}

// misePinnedRuby reads the ruby pin out of the directory's mise
// configuration, if any. The tools table maps tool name to either a bare
// version string or a list of versions; only the first entry matters.
func misePinnedRuby(dir string) (string, bool) {
	for _, name := range miseConfigNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var cfg struct {
			Tools map[string]any `toml:"tools"`
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			continue
		}
		switch v := cfg.Tools["ruby"].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case []any:
			if len(v) > 0 {
				if first, ok := v[0].(string); ok && first != "" {
					return first, true
				}
			}
		}
	}
	return "", false
}
