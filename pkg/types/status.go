package types

import (
	"encoding/json"
	"strings"
)

// Status is an order status in its canonical lowercase snake form. The
// vocabulary is server-defined; the client only distinguishes terminal from
// non-terminal values.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReceived  Status = "received"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSrcFailed Status = "src_failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions can occur.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSrcFailed, StatusCancelled:
		return true
	}
	return false
}

// UnmarshalJSON accepts both the plain lowercase string form and the
// structured {"type":"Completed"} form some deployments push, normalizing
// everything to the canonical vocabulary.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = NormalizeStatus(str)
		return nil
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = NormalizeStatus(obj.Type)
	return nil
}

// NormalizeStatus maps any accepted status spelling (CamelCase, lowercase,
// snake) onto the canonical lowercase snake form, e.g. "SrcFailed" ->
// "src_failed".
func NormalizeStatus(raw string) Status {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if raw == strings.ToLower(raw) {
		return Status(raw)
	}
	var b strings.Builder
	for i, r := range raw {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return Status(b.String())
}
