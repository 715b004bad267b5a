package vision

import (
	"math"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// Point is a position in working-frame pixels.
type Point struct {
	X, Y float64
}

// Landmarks are facial reference points. They are not detected: they are
// fixed fractions of the face box.
type Landmarks struct {
	LeftEye  Point
	RightEye Point
	Nose     Point
	Mouth    Point
}

// ApproximateLandmarks places eyes at (30%,35%) and (70%,35%), the nose at
// (50%,50%) and the mouth at (50%,70%) of the box.
func ApproximateLandmarks(b domain.BoundingBox) Landmarks {
	at := func(fx, fy float64) Point {
		return Point{X: b.X + fx*b.Width, Y: b.Y + fy*b.Height}
	}
	return Landmarks{
		LeftEye:  at(0.30, 0.35),
		RightEye: at(0.70, 0.35),
		Nose:     at(0.50, 0.50),
		Mouth:    at(0.50, 0.70),
	}
}

// PoseEstimator derives a 2-D approximation of head yaw and pitch from the
// face box position. It is not a 3-D pose solver.
type PoseEstimator struct {
	MaxYaw   float64
	MaxPitch float64
}

func NewPoseEstimator() *PoseEstimator {
	return &PoseEstimator{MaxYaw: 45, MaxPitch: 30}
}

// Estimate returns yaw and pitch in degrees using approximated landmarks.
// The approximated eye-nose-mouth proportion is the same for every box, so
// it carries no pitch information and the proportion correction is skipped.
func (e *PoseEstimator) Estimate(b domain.BoundingBox, w, h int) (yaw, pitch float64) {
	return e.estimate(b, ApproximateLandmarks(b), w, h, false)
}

// EstimateWithLandmarks is Estimate with caller-supplied landmarks.
//
// Yaw is pushed a further 15° in its own direction when the eyes sit closer
// than 80% of the expected spacing (40% of box width), which happens on a
// turned face. Pitch is pulled 10° toward zero when the eye-nose-mouth
// vertical proportion drifts more than 0.1 from 0.6.
func (e *PoseEstimator) EstimateWithLandmarks(b domain.BoundingBox, lm Landmarks, w, h int) (yaw, pitch float64) {
	return e.estimate(b, lm, w, h, true)
}

func (e *PoseEstimator) estimate(b domain.BoundingBox, lm Landmarks, w, h int, correctPitch bool) (yaw, pitch float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	cx, cy := b.Center()

	yaw = (cx - float64(w)/2) / (float64(w) / 2) * e.MaxYaw
	eyeDist := math.Hypot(lm.RightEye.X-lm.LeftEye.X, lm.RightEye.Y-lm.LeftEye.Y)
	if expected := 0.4 * b.Width; eyeDist < 0.8*expected {
		if yaw < 0 {
			yaw -= 15
		} else if yaw > 0 {
			yaw += 15
		}
	}
	yaw = clamp(yaw, -e.MaxYaw, e.MaxYaw)

	pitch = (cy - float64(h)/2) / (float64(h) / 2) * e.MaxPitch
	if correctPitch && proportionSkewed(lm) {
		pitch = towardZero(pitch, 10)
	}
	pitch = clamp(pitch, -e.MaxPitch, e.MaxPitch)

	return yaw, pitch
}

// proportionSkewed reports whether eye-to-nose over eye-to-mouth drifts more
// than 0.1 from 0.6.
func proportionSkewed(lm Landmarks) bool {
	eyeY := (lm.LeftEye.Y + lm.RightEye.Y) / 2
	eyeToNose := lm.Nose.Y - eyeY
	total := eyeToNose + lm.Mouth.Y - lm.Nose.Y
	if total == 0 {
		return false
	}
	return math.Abs(eyeToNose/total-0.6) > 0.1
}

func towardZero(v, by float64) float64 {
	if math.Abs(v) <= by {
		return 0
	}
	if v > 0 {
		return v - by
	}
	return v + by
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
