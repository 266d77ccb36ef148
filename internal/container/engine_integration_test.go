// SPDX-License-Identifier: MPL-2.0

// Integration tests for the container engine. These use testcontainers-go to
// run a real Ruby container and verify exec capture and mount inspection.
package container

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func TestEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration tests: testcontainers provider not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "ruby:3.3-alpine",
			Cmd:   []string{"sleep", "300"},
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping: could not start ruby container: %v", err)
	}
	defer func() { _ = ctr.Terminate(context.Background()) }()

	name, err := ctr.Name(ctx)
	if err != nil {
		t.Fatalf("container name: %v", err)
	}
	name = strings.TrimPrefix(name, "/")

	engine, err := NewEngine(EngineTypeDocker)
	if err != nil {
		t.Skipf("skipping: %v", err)
	}

	t.Run("ExecCapturesStdout", func(t *testing.T) {
		stdout, _, err := engine.Exec(ctx, name, "/", ExecCommand{
			Name: "ruby",
			Args: []string{"-e", "print RUBY_VERSION"},
		})
		if err != nil {
			t.Fatalf("Exec() error: %v", err)
		}
		if !strings.HasPrefix(stdout, "3.3") {
			t.Errorf("Exec() stdout = %q, want a 3.3.x version", stdout)
		}
	})

	t.Run("ExecEnvFlagReachesProcess", func(t *testing.T) {
		stdout, _, err := engine.Exec(ctx, name, "/", ExecCommand{
			Name: "ruby",
			Args: []string{"-e", `print ENV["RUBYUP_PROBE"]`},
			Env:  map[string]string{"RUBYUP_PROBE": "1"},
		})
		if err != nil {
			t.Fatalf("Exec() error: %v", err)
		}
		if stdout != "1" {
			t.Errorf("Exec() stdout = %q, want env flag visible in container", stdout)
		}
	})

	t.Run("InspectMountsDecodes", func(t *testing.T) {
		if _, err := engine.InspectMounts(ctx, name); err != nil {
			t.Fatalf("InspectMounts() error: %v", err)
		}
	})
}
