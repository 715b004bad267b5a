package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PoseBucket is one of the five discrete head orientations captured during
// enrollment. PoseNone marks an orientation that falls in no bucket.
type PoseBucket uint8

const (
	PoseNone PoseBucket = iota
	PoseFront
	PoseLeft
	PoseRight
	PoseUp
	PoseDown
)

// RequiredBuckets is the number of buckets a session must capture.
const RequiredBuckets = 5

// AllBuckets lists the capturable buckets in guidance order.
var AllBuckets = [RequiredBuckets]PoseBucket{PoseFront, PoseLeft, PoseRight, PoseUp, PoseDown}

var bucketNames = map[PoseBucket]string{
	PoseNone:  "none",
	PoseFront: "front",
	PoseLeft:  "left",
	PoseRight: "right",
	PoseUp:    "up",
	PoseDown:  "down",
}

func (b PoseBucket) String() string {
	if name, ok := bucketNames[b]; ok {
		return name
	}
	return fmt.Sprintf("PoseBucket(%d)", uint8(b))
}

// Valid reports whether b is one of the five capturable buckets.
func (b PoseBucket) Valid() bool {
	return b >= PoseFront && b <= PoseDown
}

// ParsePoseBucket parses a wire name. Matching is case-insensitive so
// "FRONT" and "front" are both accepted; "none" is rejected.
func ParsePoseBucket(s string) (PoseBucket, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for b, n := range bucketNames {
		if b != PoseNone && n == name {
			return b, nil
		}
	}
	return PoseNone, ErrInvalidPoseBucket.WithError(fmt.Errorf("unknown pose bucket %q", s))
}

func (b PoseBucket) MarshalJSON() ([]byte, error) {
	if b == PoseNone {
		return []byte("null"), nil
	}
	return json.Marshal(b.String())
}

func (b *PoseBucket) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = PoseNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePoseBucket(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// PoseProgress is the set of buckets the session authority has accepted.
// The zero value is an empty set.
type PoseProgress struct {
	captured [RequiredBuckets + 1]bool
	count    int
}

// Add marks b as captured. It returns false if b was already captured or is
// not a capturable bucket, so a bucket can never be counted twice.
func (p *PoseProgress) Add(b PoseBucket) bool {
	if !b.Valid() || p.captured[b] {
		return false
	}
	p.captured[b] = true
	p.count++
	return true
}

func (p PoseProgress) Has(b PoseBucket) bool {
	return b.Valid() && p.captured[b]
}

func (p PoseProgress) Len() int {
	return p.count
}

// Complete reports whether all required buckets are captured.
func (p PoseProgress) Complete() bool {
	return p.count == RequiredBuckets
}

func (p *PoseProgress) Reset() {
	*p = PoseProgress{}
}

// Buckets returns the captured buckets in guidance order.
func (p PoseProgress) Buckets() []PoseBucket {
	out := make([]PoseBucket, 0, p.count)
	for _, b := range AllBuckets {
		if p.captured[b] {
			out = append(out, b)
		}
	}
	return out
}

// Missing returns the buckets still to capture in guidance order.
func (p PoseProgress) Missing() []PoseBucket {
	out := make([]PoseBucket, 0, RequiredBuckets-p.count)
	for _, b := range AllBuckets {
		if !p.captured[b] {
			out = append(out, b)
		}
	}
	return out
}

// Percent returns the completion percentage in [0,100].
func (p PoseProgress) Percent() int {
	return p.count * 100 / RequiredBuckets
}
