// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"path/filepath"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
)

// Rvm activates through rvm-auto-ruby, rvm's self-selecting ruby wrapper.
// The wrapper already picks the project's runtime from the working
// directory, so the probe arguments are passed to it directly and no
// post-processing is needed.
type Rvm struct {
	h *Host
}

// NewRvm builds the rvm strategy.
func NewRvm(h *Host) *Rvm { return &Rvm{h: h} }

// ID implements Strategy.
func (s *Rvm) ID() config.ManagerID { return config.ManagerRvm }

func (s *Rvm) candidates() []string {
	var candidates []string
	if home := s.h.Home(); home != "" {
		candidates = append(candidates, filepath.Join(home, ".rvm", "bin", "rvm-auto-ruby"))
	}
	return append(candidates,
		"/usr/local/rvm/bin/rvm-auto-ruby",
		"/usr/share/rvm/bin/rvm-auto-ruby",
	)
}

// Detect implements Strategy.
func (s *Rvm) Detect(ctx context.Context) DetectionResult {
	return s.h.detectExecutable(ctx, config.ManagerRvm, "rvm-auto-ruby", s.candidates())
}

// Activate implements Strategy.
func (s *Rvm) Activate(ctx context.Context) (*activation.Result, error) {
	wrapper, err := s.h.resolveExecutable(ctx, config.ManagerRvm, "rvm-auto-ruby", s.candidates())
	if err != nil {
		return nil, err
	}
	return s.h.runProbe(ctx, []string{wrapper}, false)
}
