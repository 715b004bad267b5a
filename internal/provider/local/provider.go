package local

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/vision"
)

// Config holds configuration for the local verifier
type Config struct {
	// MinQuality is the composite quality an uploaded frame must reach. It is
	// usually below the capture threshold since the frame went through JPEG.
	MinQuality float64

	// WorkingWidth is the width frames are downsampled to before analysis.
	WorkingWidth int
}

func DefaultConfig() Config {
	return Config{
		MinQuality:   0.7,
		WorkingWidth: vision.DefaultWorkingWidth,
	}
}

// Provider verifies frames by running the same vision pipeline the capture
// client runs.
type Provider struct {
	analyzer *vision.Analyzer
	config   Config
}

var _ provider.FrameVerifier = (*Provider)(nil)

func NewProvider(cfg Config) *Provider {
	return NewProviderWithAnalyzer(cfg, vision.NewDefaultAnalyzer())
}

func NewProviderWithAnalyzer(cfg Config, analyzer *vision.Analyzer) *Provider {
	if cfg.WorkingWidth <= 0 {
		cfg.WorkingWidth = vision.DefaultWorkingWidth
	}
	return &Provider{analyzer: analyzer, config: cfg}
}

func (p *Provider) VerifyFrame(ctx context.Context, data []byte, claimed domain.PoseBucket) (*provider.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("decode frame: %w", err))
	}

	frame, err := vision.NewFrame(img, p.config.WorkingWidth)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	r := p.analyzer.Analyze(frame)
	switch {
	case r.FaceCount == 0:
		return provider.Reject(domain.PoseNone, 0, provider.ReasonNoFace), nil
	case r.FaceCount > 1:
		return provider.Reject(domain.PoseNone, 0, provider.ReasonMultipleFaces), nil
	case !r.Usable():
		return provider.Reject(domain.PoseNone, 0, provider.ReasonLowConfidence), nil
	case r.PoseBucket != claimed:
		return provider.Reject(r.PoseBucket, r.Quality, provider.ReasonPoseMismatch), nil
	case r.Quality < p.config.MinQuality:
		return provider.Reject(r.PoseBucket, r.Quality, provider.ReasonLowQuality), nil
	}

	return provider.Accept(r.PoseBucket, r.Quality), nil
}
