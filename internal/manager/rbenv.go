// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"path/filepath"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/platform"
)

// Rbenv activates through `rbenv exec ruby`. rbenv dispatches every entry
// point through generated shims, so the only post-processing is putting the
// shims directory first on the search path; GEM_HOME/GEM_PATH are left
// exactly as the probe captured them.
type Rbenv struct {
	h *Host
}

// NewRbenv builds the rbenv strategy.
func NewRbenv(h *Host) *Rbenv { return &Rbenv{h: h} }

// ID implements Strategy.
func (s *Rbenv) ID() config.ManagerID { return config.ManagerRbenv }

func (s *Rbenv) candidates() []string {
	if home := s.h.Home(); home != "" {
		return []string{filepath.Join(home, ".rbenv", "bin", "rbenv")}
	}
	return nil
}

// Detect implements Strategy.
func (s *Rbenv) Detect(ctx context.Context) DetectionResult {
	return s.h.detectExecutable(ctx, config.ManagerRbenv, "rbenv", s.candidates())
}

// Activate implements Strategy.
func (s *Rbenv) Activate(ctx context.Context) (*activation.Result, error) {
	rbenv, err := s.h.resolveExecutable(ctx, config.ManagerRbenv, "rbenv", s.candidates())
	if err != nil {
		return nil, err
	}

	res, err := s.h.runProbe(ctx, []string{rbenv, "exec", "ruby"}, false)
	if err != nil {
		return nil, err
	}

	if home := s.h.Home(); home != "" {
		res.Env = platform.PrependPathDir(res.Env, filepath.Join(home, ".rbenv", "shims"))
	}
	return res, nil
}
