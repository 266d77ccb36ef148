// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"maps"
	"testing"
)

func TestNewResult_OverlaysProbeEnvAndStripsDenylist(t *testing.T) {
	t.Parallel()

	inherited := []string{"HOME=/home/u", "PATH=/usr/bin", "VERBOSE=1", "malformed-entry"}
	report := &Report{
		Env:     map[string]string{"PATH": "/r/bin:/usr/bin", "GEM_HOME": "/g", "DEBUG": "1"},
		Version: "3.3.0",
	}

	r := NewResult(inherited, report)

	if r.Env["HOME"] != "/home/u" {
		t.Error("inherited entry lost")
	}
	if r.Env["PATH"] != "/r/bin:/usr/bin" {
		t.Errorf("Env[PATH] = %q, want probe value to win", r.Env["PATH"])
	}
	if _, ok := r.Env["VERBOSE"]; ok {
		t.Error("VERBOSE survived normalization")
	}
	if _, ok := r.Env["DEBUG"]; ok {
		t.Error("DEBUG survived normalization")
	}
	if r.Converter == nil {
		t.Error("Converter is nil, want identity converter")
	}
	if got := r.Converter.ToRemote("/ws/x"); got != "/ws/x" {
		t.Errorf("identity Converter.ToRemote() = %q", got)
	}
}

func TestResult_MergeEnv_Idempotent(t *testing.T) {
	t.Parallel()

	r := NewResult([]string{"A=1"}, &Report{Version: "3.3.0"})
	extra := map[string]string{"A": "2", "B": "3", "DEBUG": "1"}

	r.MergeEnv(extra)
	once := maps.Clone(r.Env)
	r.MergeEnv(extra)

	if !maps.Equal(once, r.Env) {
		t.Errorf("MergeEnv() twice = %v, want same as once = %v", r.Env, once)
	}
	if r.Env["A"] != "2" {
		t.Errorf("Env[A] = %q, want last-write-wins", r.Env["A"])
	}
	if _, ok := r.Env["DEBUG"]; ok {
		t.Error("DEBUG survived merge")
	}
}
