package cache

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Entry is the envelope stored in both tiers.
type Entry struct {
	Value     []byte        `json:"value"`
	Failure   bool          `json:"failure,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	LocalTTL  time.Duration `json:"local_ttl"`
	Tags      []string      `json:"tags,omitempty"`
}

// remaining returns how long the entry stays valid in the shared tier.
func (e Entry) remaining(now time.Time) time.Duration {
	return e.ExpiresAt.Sub(now)
}

// localTTL bounds the local lifetime by what is left of the shared lifetime.
func (e Entry) localTTL(now time.Time) time.Duration {
	return min(e.LocalTTL, e.remaining(now))
}

func encodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if e.ExpiresAt.IsZero() {
		return Entry{}, fmt.Errorf("%w: missing expiry", ErrCorruptEntry)
	}
	return e, nil
}

// NormalizeTags trims tags, drops blanks and duplicates, and sorts the rest.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
