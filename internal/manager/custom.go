// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/procexec"
)

// Custom activates through a user-supplied command. The configured string
// is split into argv with POSIX shell word rules, "ruby" and the probe
// arguments are appended, and the result runs through the user's shell when
// one is configured — custom commands routinely rely on shell init files
// and functions (e.g. "chruby_use" or a bespoke wrapper). The command is
// expected to exec its trailing arguments inside the activated runtime.
type Custom struct {
	h *Host
}

// NewCustom builds the custom strategy.
func NewCustom(h *Host) *Custom { return &Custom{h: h} }

// ID implements Strategy.
func (s *Custom) ID() config.ManagerID { return config.ManagerCustom }

// Detect implements Strategy. Configuration presence is the only signal.
func (s *Custom) Detect(ctx context.Context) DetectionResult {
	if s.h.Config.CustomCommand == "" {
		return DetectedNone()
	}
	return DetectedSemantic(s.h.Config.CustomCommand)
}

// Activate implements Strategy.
func (s *Custom) Activate(ctx context.Context) (*activation.Result, error) {
	if s.h.Config.CustomCommand == "" {
		return nil, &activation.MissingConfigurationError{Setting: "custom_command"}
	}
	argv, err := procexec.SplitCommandLine(s.h.Config.CustomCommand, s.h.BaseEnv())
	if err != nil {
		return nil, &activation.ParseFailureError{Reason: "splitting custom activation command: " + err.Error(), Payload: s.h.Config.CustomCommand}
	}
	if len(argv) == 0 {
		return nil, &activation.MissingConfigurationError{Setting: "custom_command"}
	}
	return s.h.runProbe(ctx, append(argv, "ruby"), true)
}
