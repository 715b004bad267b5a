package vision

import "github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"

type angleRange struct {
	lo, hi float64
}

func (r angleRange) contains(v float64) bool {
	return v >= r.lo && v <= r.hi
}

type bucketRule struct {
	bucket domain.PoseBucket
	yaw    angleRange
	pitch  angleRange
}

// bucketRules are pairwise disjoint. UP and DOWN share FRONT's yaw band, so
// the gaps between rules are dead zones that keep the bucket from flickering
// at boundaries.
var bucketRules = []bucketRule{
	{domain.PoseFront, angleRange{-8, 8}, angleRange{-6, 6}},
	{domain.PoseLeft, angleRange{-35, -12}, angleRange{-15, 15}},
	{domain.PoseRight, angleRange{12, 35}, angleRange{-15, 15}},
	{domain.PoseUp, angleRange{-8, 8}, angleRange{-30, -8}},
	{domain.PoseDown, angleRange{-8, 8}, angleRange{8, 25}},
}

// ClassifyPose maps yaw and pitch in degrees to a capture bucket, or
// PoseNone when the orientation falls in no bucket.
func ClassifyPose(yaw, pitch float64) domain.PoseBucket {
	for _, r := range bucketRules {
		if r.yaw.contains(yaw) && r.pitch.contains(pitch) {
			return r.bucket
		}
	}
	return domain.PoseNone
}

// InFrame reports whether b clears a margin of 10% of min(w,h) from every
// frame edge.
func InFrame(b domain.BoundingBox, w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	m := 0.1 * float64(min(w, h))
	return b.X >= m && b.Y >= m &&
		b.X+b.Width <= float64(w)-m &&
		b.Y+b.Height <= float64(h)-m
}
