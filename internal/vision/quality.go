package vision

import (
	"math"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// QualityScorer rates how usable a detected face is for enrollment.
type QualityScorer struct {
	SharpnessNorm  float64
	LightingStdDev float64
}

func NewQualityScorer() *QualityScorer {
	return &QualityScorer{SharpnessNorm: 50, LightingStdDev: 50}
}

// Score returns the composite quality and its components for box b.
func (q *QualityScorer) Score(f *Frame, b domain.BoundingBox) (float64, domain.QualityDetail) {
	if f.Empty() {
		return 0, domain.QualityDetail{}
	}
	r := q.clip(f, b)

	d := domain.QualityDetail{
		Size:      SizeScore(b.Area() / float64(f.Width*f.Height)),
		Position:  PositionScore(b, f.Width, f.Height),
		Sharpness: q.sharpness(f, r),
		Lighting:  q.lighting(f, r),
	}
	total := 0.3*d.Size + 0.25*d.Position + 0.25*d.Sharpness + 0.2*d.Lighting
	return total, d
}

func (q *QualityScorer) clip(f *Frame, b domain.BoundingBox) rect {
	return rect{
		x0: max(0, int(b.X)),
		y0: max(0, int(b.Y)),
		x1: min(f.Width, int(b.X+b.Width)),
		y1: min(f.Height, int(b.Y+b.Height)),
	}
}

// sharpness is the mean absolute 4-neighbour Laplacian on a stride-2 grid.
func (q *QualityScorer) sharpness(f *Frame, r rect) float64 {
	var sum float64
	var n int
	for y := max(r.y0, 1); y < min(r.y1, f.Height-1); y += 2 {
		for x := max(r.x0, 1); x < min(r.x1, f.Width-1); x += 2 {
			lap := 4*f.Luminance(x, y) -
				f.Luminance(x, y-1) - f.Luminance(x, y+1) -
				f.Luminance(x-1, y) - f.Luminance(x+1, y)
			sum += math.Abs(lap)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n) / q.SharpnessNorm)
}

// lighting favours even illumination at a moderate brightness.
func (q *QualityScorer) lighting(f *Frame, r rect) float64 {
	var sum, sumSq float64
	var n int
	for y := r.y0; y < r.y1; y += 4 {
		for x := r.x0; x < r.x1; x += 4 {
			l := f.Luminance(x, y)
			sum += l
			sumSq += l * l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := math.Max(0, sumSq/float64(n)-mean*mean)
	evenness := 1 - math.Min(1, math.Sqrt(variance)/q.LightingStdDev)

	bonus := 0.5
	if mean > 80 && mean < 180 {
		bonus = 1
	}
	return 0.7*evenness + 0.3*bonus
}
