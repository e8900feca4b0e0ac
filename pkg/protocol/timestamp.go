package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order when decoding wire timestamps.
// Zone-less forms are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp decodes a wire timestamp. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Ticket) UnmarshalJSON(data []byte) error {
	type plain Ticket
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return fmt.Errorf("ticket %s: %w", t.ID, err)
	}
	t.Timestamp = ts
	return nil
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return fmt.Errorf("message %s: %w", m.ID, err)
	}
	m.Timestamp = ts
	return nil
}
