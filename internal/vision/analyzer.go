package vision

import (
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// FaceFinder locates faces in a working frame.
type FaceFinder interface {
	Detect(f *Frame) Detection
}

// Analyzer runs the per-tick pipeline: detection, then pose, quality and
// bucket for a single validated face.
type Analyzer struct {
	finder  FaceFinder
	pose    *PoseEstimator
	quality *QualityScorer
}

func NewAnalyzer(finder FaceFinder) *Analyzer {
	return &Analyzer{
		finder:  finder,
		pose:    NewPoseEstimator(),
		quality: NewQualityScorer(),
	}
}

// NewDefaultAnalyzer wires the heuristic detector with default thresholds.
func NewDefaultAnalyzer() *Analyzer {
	return NewAnalyzer(NewDetector(DefaultDetectorConfig()))
}

// Analyze never fails: unusable frames are represented in the result with
// pose and quality zeroed and no bucket.
func (a *Analyzer) Analyze(f *Frame) domain.DetectionResult {
	if f.Empty() {
		return domain.DetectionResult{}
	}

	det := a.finder.Detect(f)
	res := domain.DetectionResult{
		FaceDetected:   det.Count > 0,
		FaceCount:      det.Count,
		FaceConfidence: det.Confidence,
	}
	if !det.Valid {
		return res
	}

	yaw, pitch := a.pose.Estimate(det.Box, f.Width, f.Height)
	quality, detail := a.quality.Score(f, det.Box)

	res.Box = det.Box
	res.FaceInFrame = InFrame(det.Box, f.Width, f.Height)
	res.Yaw = yaw
	res.Pitch = pitch
	res.PoseBucket = ClassifyPose(yaw, pitch)
	res.Quality = quality
	res.QualityDetail = detail
	return res
}
