package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/config"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider/local"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider/rekognition"
)

// ProviderType defines supported frame verifier types
type ProviderType string

const (
	// ProviderTypeLocal re-runs the capture vision pipeline in process
	ProviderTypeLocal ProviderType = "local"
	// ProviderTypeRekognition is the AWS Rekognition verifier (cloud, for prod)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock accepts every sufficiently large image (dev/test)
	ProviderTypeMock ProviderType = "mock"
)

// NewFrameVerifier creates a FrameVerifier based on configuration
//
// Environment variables:
//   - PROVIDER_TYPE: "local", "rekognition" or "mock" (default: "local")
//   - ACCEPT_MIN_QUALITY: minimum quality for local verification (default: 0.7)
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY: via AWS SDK credential chain
func NewFrameVerifier(ctx context.Context, cfg *config.Config) (provider.FrameVerifier, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeLocal, "":
		lc := local.DefaultConfig()
		lc.MinQuality = cfg.AcceptMinQuality
		return local.NewProvider(lc), nil

	case ProviderTypeRekognition:
		return createRekognitionVerifier(ctx, cfg)

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.ProviderType, ProviderTypeLocal, ProviderTypeRekognition, ProviderTypeMock)
	}
}

func createRekognitionVerifier(ctx context.Context, cfg *config.Config) (provider.FrameVerifier, error) {
	rc := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rc.Region = cfg.AWSRegion
	}

	prov, err := rekognition.NewProvider(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("create rekognition verifier: %w", err)
	}

	return prov, nil
}
