package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/vision"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Provider verifies enrollment frames with AWS Rekognition DetectFaces.
// Rekognition reports pitch positive when the head tilts up, the opposite of
// the capture convention, so it is negated before classification.
type Provider struct {
	api    DetectFacesAPI
	config Config
}

// Ensure Provider implements provider.FrameVerifier interface at compile time
var _ provider.FrameVerifier = (*Provider)(nil)

// NewProvider creates a Rekognition-backed verifier using the default AWS
// credential chain.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewProviderWithAPI(client, cfg), nil
}

func NewProviderWithAPI(api DetectFacesAPI, cfg Config) *Provider {
	return &Provider{api: api, config: cfg}
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

func (p *Provider) VerifyFrame(ctx context.Context, image []byte, claimed domain.PoseBucket) (*provider.Verdict, error) {
	if err := validateImage(image); err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	output, err := p.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", classifyError(err))
	}

	switch len(output.FaceDetails) {
	case 0:
		return provider.Reject(domain.PoseNone, 0, provider.ReasonNoFace), nil
	case 1:
	default:
		return provider.Reject(domain.PoseNone, 0, provider.ReasonMultipleFaces), nil
	}

	detail := output.FaceDetails[0]
	if float64(aws.ToFloat32(detail.Confidence)) < p.config.MinConfidence {
		return provider.Reject(domain.PoseNone, 0, provider.ReasonLowConfidence), nil
	}

	observed := poseBucket(detail.Pose)
	quality := imageQuality(detail.Quality)

	if observed != claimed {
		return provider.Reject(observed, quality, provider.ReasonPoseMismatch), nil
	}
	if quality < p.config.MinQuality {
		return provider.Reject(observed, quality, provider.ReasonLowQuality), nil
	}
	return provider.Accept(observed, quality), nil
}

func poseBucket(pose *types.Pose) domain.PoseBucket {
	if pose == nil {
		return domain.PoseNone
	}
	return vision.ClassifyPose(float64(aws.ToFloat32(pose.Yaw)), -float64(aws.ToFloat32(pose.Pitch)))
}

func imageQuality(q *types.ImageQuality) float64 {
	if q == nil {
		return 0
	}
	return float64(aws.ToFloat32(q.Sharpness)+aws.ToFloat32(q.Brightness)) / 200
}
