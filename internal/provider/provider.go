package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// FrameVerifier re-checks an uploaded enrollment frame on the server side.
// A frame the verifier does not like is a rejected Verdict, not an error;
// errors are reserved for unreadable input and backend failures.
type FrameVerifier interface {
	VerifyFrame(ctx context.Context, image []byte, claimed domain.PoseBucket) (*Verdict, error)
}

// Verdict is the outcome of verifying one frame.
type Verdict struct {
	Accepted bool              `json:"accepted"`
	Observed domain.PoseBucket `json:"observed"`
	Quality  float64           `json:"quality"`
	Reason   string            `json:"reason,omitempty"`
}

// Rejection reasons shared by the verifiers.
const (
	ReasonNoFace        = "no face detected"
	ReasonMultipleFaces = "multiple faces detected"
	ReasonLowConfidence = "face confidence too low"
	ReasonPoseMismatch  = "pose does not match the requested bucket"
	ReasonLowQuality    = "image quality too low"
)

// Accept builds an accepted verdict.
func Accept(observed domain.PoseBucket, quality float64) *Verdict {
	return &Verdict{Accepted: true, Observed: observed, Quality: quality}
}

// Reject builds a rejected verdict.
func Reject(observed domain.PoseBucket, quality float64, reason string) *Verdict {
	return &Verdict{Observed: observed, Quality: quality, Reason: reason}
}
