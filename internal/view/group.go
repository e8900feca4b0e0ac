package view

import (
	"sort"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

// DefaultGroupLayout buckets messages by minute, e.g. "Apr, 01, 2025, 10:04 AM".
const DefaultGroupLayout = "Jan, 02, 2006, 03:04 PM"

// Grouping controls the bucket key of GroupMessages. The layout decides
// the grain: a layout without seconds collapses messages within the same
// minute into one bucket.
type Grouping struct {
	Layout   string
	Location *time.Location
}

// DefaultGrouping is minute grain in the local zone.
func DefaultGrouping() Grouping {
	return Grouping{Layout: DefaultGroupLayout, Location: time.Local}
}

// Group is one bucket of consecutive-by-key messages.
type Group struct {
	Key      string
	Messages []protocol.Message
}

// Key formats the bucket key for ts.
func (g Grouping) Key(ts time.Time) string {
	layout := g.Layout
	if layout == "" {
		layout = DefaultGroupLayout
	}
	if g.Location != nil {
		ts = ts.In(g.Location)
	}
	return ts.Format(layout)
}

// GroupMessages buckets msgs by formatted timestamp. Buckets appear in the
// order their key was first seen and messages keep their input order
// within a bucket. Input is expected in ascending timestamp order.
func GroupMessages(msgs []protocol.Message, g Grouping) []Group {
	var groups []Group
	pos := make(map[string]int)
	for _, m := range msgs {
		key := g.Key(m.Timestamp)
		i, ok := pos[key]
		if !ok {
			i = len(groups)
			pos[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	return groups
}

// SortMessages orders msgs ascending by timestamp; equal timestamps keep
// their arrival order.
func SortMessages(msgs []protocol.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
