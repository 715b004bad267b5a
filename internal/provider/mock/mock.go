package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/provider"
)

const minImageSize = 1000

// Provider implementa provider.FrameVerifier para testes e desenvolvimento
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// VerifyFrame aceita qualquer imagem grande o suficiente com a pose informada
func (p *Provider) VerifyFrame(ctx context.Context, image []byte, claimed domain.PoseBucket) (*provider.Verdict, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	if !claimed.Valid() {
		return nil, domain.ErrInvalidPoseBucket
	}

	return provider.Accept(claimed, qualityFor(image)), nil
}

// qualityFor gera uma qualidade determinística em [0.85, 1.0) a partir do hash da imagem
func qualityFor(image []byte) float64 {
	hash := sha256.Sum256(image)
	n := binary.BigEndian.Uint16(hash[:2])
	return 0.85 + 0.15*float64(n)/65536.0
}

var _ provider.FrameVerifier = (*Provider)(nil)
