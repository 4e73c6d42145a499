package launcher

import (
	"encoding/json"
	"strings"
)

// Payload is the JSON object a conforming generator emits on its stdout:
// a success indicator, the commit message when successful (null when not),
// and an optional error description.
type Payload struct {
	Success       bool    `json:"success"`
	CommitMessage *string `json:"commit_message"`
	Error         string  `json:"error,omitempty"`
}

// SuccessPayload builds the payload for a generated message.
func SuccessPayload(message string) *Payload {
	return &Payload{Success: true, CommitMessage: &message}
}

// FailurePayload builds the payload for a failed generation.
func FailurePayload(errText string) *Payload {
	return &Payload{Success: false, Error: errText}
}

// ParseError is returned when a cleanly exited process did not emit a
// conformant JSON payload. Output carries the full captured stdout.
type ParseError struct {
	Output string
	Reason string
}

func (e *ParseError) Error() string {
	return "launcher: unparseable generator output: " + e.Reason
}

// ExtractPayload locates the result payload in captured stdout. Generators
// may print diagnostics before the payload, so the scan walks opening
// braces from the end of the stream and accepts the first suffix that
// parses as a complete JSON object carrying the success field. Trailing
// text after the payload makes the stream ambiguous and is rejected.
func ExtractPayload(stdout string) (*Payload, error) {
	for i := strings.LastIndexByte(stdout, '{'); i >= 0; i = strings.LastIndexByte(stdout[:i], '{') {
		suffix := []byte(stdout[i:])

		var probe struct {
			Success *bool `json:"success"`
		}
		if err := json.Unmarshal(suffix, &probe); err != nil || probe.Success == nil {
			continue
		}

		var p Payload
		if err := json.Unmarshal(suffix, &p); err != nil {
			continue
		}

		return &p, nil
	}

	return nil, &ParseError{Output: stdout, Reason: "no result payload in output"}
}
