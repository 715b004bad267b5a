package domain

// BoundingBox is a face rectangle in working-frame pixel coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the centre point of the box.
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns the area of the box.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// QualityDetail holds the per-metric components of the composite quality.
type QualityDetail struct {
	Size      float64 `json:"size"`
	Position  float64 `json:"position"`
	Sharpness float64 `json:"sharpness"`
	Lighting  float64 `json:"lighting"`
}

// DetectionResult is recomputed every tick and never mutated after creation.
// When the detection is not usable (zero faces, several faces, or a single
// face below the confidence floor) Yaw, Pitch, Quality and QualityDetail are
// zero and PoseBucket is PoseNone.
type DetectionResult struct {
	FaceDetected   bool          `json:"face_detected"`
	FaceCount      int           `json:"face_count"`
	FaceConfidence float64       `json:"face_confidence"`
	FaceInFrame    bool          `json:"face_in_frame"`
	PoseBucket     PoseBucket    `json:"pose_bucket"`
	Yaw            float64       `json:"yaw"`
	Pitch          float64       `json:"pitch"`
	Quality        float64       `json:"quality"`
	QualityDetail  QualityDetail `json:"quality_detail"`
	Box            BoundingBox   `json:"box"`
}

// Usable reports whether the result describes exactly one validated face.
func (r DetectionResult) Usable() bool {
	return r.FaceCount == 1 && r.Box.Area() > 0
}
