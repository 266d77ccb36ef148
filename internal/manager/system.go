// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
)

// System activates whatever ruby the ambient search path resolves, with no
// version manager in between. It is the terminal auto-detection candidate
// and the explicit choice for machines with a single global installation.
type System struct {
	h *Host
}

// NewSystem builds the system strategy.
func NewSystem(h *Host) *System { return &System{h: h} }

// ID implements Strategy.
func (s *System) ID() config.ManagerID { return config.ManagerSystem }

// Detect implements Strategy.
func (s *System) Detect(ctx context.Context) DetectionResult {
	return s.h.detectExecutable(ctx, config.ManagerSystem, "ruby", nil)
}

// Activate implements Strategy.
func (s *System) Activate(ctx context.Context) (*activation.Result, error) {
	ruby, err := s.h.resolveExecutable(ctx, config.ManagerSystem, "ruby", nil)
	if err != nil {
		return nil, err
	}
	return s.h.runProbe(ctx, []string{ruby}, false)
}
