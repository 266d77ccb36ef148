// SPDX-License-Identifier: MPL-2.0

// Package container provides the execution-context translation layer for
// containerized Ruby runtimes: a CLI-engine wrapper (Docker/Podman) for
// running commands inside a development container, longest-prefix path
// translation between the host workspace and the container filesystem, and
// a command wrapper that rewrites arbitrary invocations to run in-container.
package container
