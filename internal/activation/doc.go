// SPDX-License-Identifier: MPL-2.0

// Package activation defines the activation protocol and result model:
// the embedded environment probe and its sentinel-delimited payload, the
// normalized ActivationResult handed to callers, and the typed error
// taxonomy every strategy reports through.
package activation
