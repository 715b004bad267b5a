package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// Reason explains a capture decision. Values are ordered by the gate that
// produced them.
type Reason int

const (
	ReasonCapture Reason = iota
	ReasonInactive
	ReasonNoFace
	ReasonMultipleFaces
	ReasonNoPose
	ReasonLowConfidence
	ReasonOutOfFrame
	ReasonLowQuality
	ReasonAlreadyCaptured
	ReasonCoolingDown
)

var reasonNames = map[Reason]string{
	ReasonCapture:         "capture",
	ReasonInactive:        "inactive",
	ReasonNoFace:          "no_face",
	ReasonMultipleFaces:   "multiple_faces",
	ReasonNoPose:          "no_pose",
	ReasonLowConfidence:   "low_confidence",
	ReasonOutOfFrame:      "out_of_frame",
	ReasonLowQuality:      "low_quality",
	ReasonAlreadyCaptured: "already_captured",
	ReasonCoolingDown:     "cooling_down",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Ambiguous reports whether the detection itself was unusable.
func (r Reason) Ambiguous() bool {
	return r == ReasonNoFace || r == ReasonMultipleFaces || r == ReasonLowConfidence
}

// BelowThreshold reports whether a usable face failed a quality gate.
func (r Reason) BelowThreshold() bool {
	return r == ReasonOutOfFrame || r == ReasonLowQuality
}

// Decision is the outcome of evaluating one detection result.
type Decision struct {
	Capture bool
	Bucket  domain.PoseBucket
	Reason  Reason
	Message string
	Result  domain.DetectionResult
}

// evaluate applies the capture gates in order. Callers hold c.mu.
func (c *Controller) evaluate(r domain.DetectionResult, now time.Time) Decision {
	d := Decision{Bucket: r.PoseBucket, Result: r}
	reject := func(reason Reason, msg string) Decision {
		d.Reason = reason
		d.Message = msg
		return d
	}

	switch {
	case c.state != StateActive:
		return reject(ReasonInactive, "")
	case r.FaceCount == 0:
		return reject(ReasonNoFace, "Position your face in front of the camera")
	case r.FaceCount > 1:
		return reject(ReasonMultipleFaces, "Only one person should be in the frame")
	case r.FaceConfidence < c.cfg.MinConfidence:
		return reject(ReasonLowConfidence, "Hold still so your face can be detected")
	case r.PoseBucket == domain.PoseNone:
		return reject(ReasonNoPose, "Turn your head toward: "+joinBuckets(c.progress.Missing()))
	case !r.FaceInFrame:
		return reject(ReasonOutOfFrame, "Move your face toward the centre of the frame")
	case r.Quality < c.cfg.MinQuality:
		return reject(ReasonLowQuality, qualityHint(r.QualityDetail))
	case c.progress.Has(r.PoseBucket):
		return reject(ReasonAlreadyCaptured,
			fmt.Sprintf("Pose %s already captured, now try: %s", r.PoseBucket, joinBuckets(c.progress.Missing())))
	}

	if last, ok := c.cooldown[r.PoseBucket]; ok && now.Sub(last) < c.cfg.Cooldown {
		return reject(ReasonCoolingDown, fmt.Sprintf("Hold the %s pose", r.PoseBucket))
	}

	d.Capture = true
	d.Reason = ReasonCapture
	d.Message = fmt.Sprintf("Capturing %s pose", r.PoseBucket)
	return d
}

// qualityHint names the weakest quality component.
func qualityHint(q domain.QualityDetail) string {
	hints := []struct {
		score float64
		msg   string
	}{
		{q.Size, "Move closer to the camera"},
		{q.Position, "Center your face in the frame"},
		{q.Sharpness, "Hold still, the image is blurry"},
		{q.Lighting, "Find more even lighting"},
	}
	best := hints[0]
	for _, h := range hints[1:] {
		if h.score < best.score {
			best = h
		}
	}
	return best.msg
}

func joinBuckets(bs []domain.PoseBucket) string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.String()
	}
	return strings.Join(names, ", ")
}
