// SPDX-License-Identifier: MPL-2.0

package activation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel delimits the probe payload inside process output. It is agreed
// independently by both sides of the protocol: changing it requires a
// synchronized update of probe.rb and the extraction pattern below.
const Sentinel = "RUBYUP_ACTIVATE_9F6A"

// Legacy field/entry separators. Current probes emit JSON; wrapper scripts
// in the wild may still carry an older probe revision that emits
// field-separated payloads, so the decoder accepts both.
const (
	legacyFieldSep = "RUBYUP_FS_9F6A"
	legacyEntrySep = "RUBYUP_RS_9F6A"
)

//go:embed probe.rb
var probeSource string

// payloadPattern extracts the payload between two sentinel occurrences.
// (?s) lets the payload span lines: JSON.dump never emits raw newlines, but
// legacy payloads may carry them inside env values.
var payloadPattern = regexp.MustCompile(`(?s)` + Sentinel + `(.*?)` + Sentinel)

// ProbeArgs returns the argument list that makes a `ruby` invocation run the
// probe: warnings are suppressed so manager noise on stderr stays
// distinguishable from the sentinel-delimited payload.
func ProbeArgs() []string {
	return []string{"-W0", "-e", probeSource}
}

// Report is the decoded probe payload.
type Report struct {
	// Env is the environment as seen by the activated runtime.
	Env map[string]string `json:"env"`
	// YJIT reports whether the runtime was built with the optimizing JIT.
	YJIT bool `json:"yjit"`
	// Version is the runtime version string, e.g. "3.3.4".
	Version string `json:"version"`
	// GemPaths are the runtime's library search paths, in order.
	GemPaths []string `json:"gemPath"`
}

// ExtractPayload pulls the sentinel-bounded payload out of raw process
// output. Extraction is lossless for any payload that does not itself
// contain the sentinel.
func ExtractPayload(output string) (string, error) {
	m := payloadPattern.FindStringSubmatch(output)
	if m == nil {
		return "", &ParseFailureError{
			Reason:  fmt.Sprintf("no payload delimited by %q in probe output", Sentinel),
			Payload: output,
		}
	}
	return m[1], nil
}

// DecodeReport parses an extracted payload. JSON is the canonical encoding;
// the legacy multi-separator encoding is attempted when the payload does not
// look like a JSON object.
func DecodeReport(payload string) (*Report, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, &ParseFailureError{Reason: "empty payload"}
	}
	if strings.HasPrefix(trimmed, "{") {
		return decodeJSONReport(trimmed)
	}
	return decodeLegacyReport(payload)
}

// ParseProbeOutput combines extraction and decoding.
func ParseProbeOutput(output string) (*Report, error) {
	payload, err := ExtractPayload(output)
	if err != nil {
		return nil, err
	}
	return DecodeReport(payload)
}

func decodeJSONReport(payload string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, &ParseFailureError{
			Reason:  fmt.Sprintf("invalid JSON payload: %v", err),
			Payload: payload,
		}
	}
	if r.Version == "" {
		return nil, &ParseFailureError{Reason: "payload has no runtime version", Payload: payload}
	}
	if r.Env == nil {
		r.Env = map[string]string{}
	}
	return &r, nil
}

// decodeLegacyReport parses the older field-separated encoding:
// version FS yjit FS gemPath-entries FS env-entries, with list entries
// joined by the entry separator and env entries in KEY=VALUE form.
func decodeLegacyReport(payload string) (*Report, error) {
	fields := strings.Split(payload, legacyFieldSep)
	if len(fields) != 4 {
		return nil, &ParseFailureError{
			Reason:  fmt.Sprintf("legacy payload has %d fields, want 4", len(fields)),
			Payload: payload,
		}
	}

	r := &Report{
		Version: strings.TrimSpace(fields[0]),
		YJIT:    strings.TrimSpace(fields[1]) == "true",
		Env:     map[string]string{},
	}
	if r.Version == "" {
		return nil, &ParseFailureError{Reason: "legacy payload has no runtime version", Payload: payload}
	}

	if gems := fields[2]; gems != "" {
		r.GemPaths = strings.Split(gems, legacyEntrySep)
	}
	if envField := fields[3]; envField != "" {
		for _, entry := range strings.Split(envField, legacyEntrySep) {
			if entry == "" {
				continue
			}
			key, value, ok := strings.Cut(entry, "=")
			if !ok || key == "" {
				// A malformed entry is surfaced, not dropped: dropping it
				// would hide a corrupted environment from the caller.
				return nil, &ParseFailureError{
					Reason:  fmt.Sprintf("malformed env entry %q", entry),
					Payload: payload,
				}
			}
			r.Env[key] = value
		}
	}
	return r, nil
}
