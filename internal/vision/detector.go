package vision

import (
	"math"
	"sort"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

// DetectorConfig holds the scan and validation thresholds.
type DetectorConfig struct {
	Scales               []float64
	MinWindowRatio       float64 // smallest window side as a fraction of min(w,h)
	MaxWindowRatio       float64
	SizeStepRatio        float64
	SpatialStep          float64 // fraction of the current window side
	CandidateScore       float64 // composite score a window must exceed
	IoUThreshold         float64
	ContainmentThreshold float64 // share of a window's area inside a kept one; 0 disables
	MinConfidence        float64 // survivors must exceed this
	ValidConfidence      float64 // a single survivor must reach this to be usable
	MinWindowSide        int
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Scales:               []float64{1.0, 0.85, 0.70},
		MinWindowRatio:       0.10,
		MaxWindowRatio:       0.40,
		SizeStepRatio:        0.20,
		SpatialStep:          0.10,
		CandidateScore:       0.6,
		IoUThreshold:         0.3,
		ContainmentThreshold: 0.5,
		MinConfidence:        0.6,
		ValidConfidence:      0.9,
		MinWindowSide:        12,
	}
}

// Detection is the detector's summary of one frame. Count is the number of
// candidates surviving suppression and confidence filtering; Box and
// Confidence describe the best of them.
type Detection struct {
	Count      int
	Confidence float64
	Box        domain.BoundingBox
	Valid      bool
}

// candidate is a scored square window in working-frame pixels.
type candidate struct {
	x, y, size int
	raw        float64
	confidence float64
}

func (c candidate) rect() rect {
	return rect{c.x, c.y, c.x + c.size, c.y + c.size}
}

func (c candidate) box() domain.BoundingBox {
	return domain.BoundingBox{
		X:      float64(c.x),
		Y:      float64(c.y),
		Width:  float64(c.size),
		Height: float64(c.size),
	}
}

// Detector is a heuristic multi-scale window scanner. It is stateless and
// safe for concurrent use.
type Detector struct {
	cfg DetectorConfig
}

func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect scans f and reduces the candidates to at most one usable face.
func (d *Detector) Detect(f *Frame) Detection {
	if f.Empty() {
		return Detection{}
	}

	return d.summarize(d.suppress(d.scan(newIntegrals(f), f.Width, f.Height)), f.Width, f.Height)
}

// summarize scores the suppressed candidates and applies the validity rule.
func (d *Detector) summarize(cands []candidate, w, h int) Detection {
	frameArea := float64(w * h)
	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		b := c.box()
		c.confidence = 0.4*c.raw + 0.3*SizeScore(b.Area()/frameArea) + 0.3*PositionScore(b, w, h)
		if c.confidence > d.cfg.MinConfidence {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].confidence > kept[j].confidence })

	if len(kept) == 0 {
		return Detection{}
	}
	top := kept[0]
	return Detection{
		Count:      len(kept),
		Confidence: top.confidence,
		Box:        top.box(),
		Valid:      len(kept) == 1 && top.confidence >= d.cfg.ValidConfidence,
	}
}

// scan returns every window whose composite score exceeds the candidate
// threshold, across all scales.
func (d *Detector) scan(in *integrals, w, h int) []candidate {
	minDim := float64(min(w, h))
	var out []candidate

	for _, scale := range d.cfg.Scales {
		lo := int(minDim * d.cfg.MinWindowRatio * scale)
		hi := int(minDim * d.cfg.MaxWindowRatio * scale)
		lo = max(lo, d.cfg.MinWindowSide)

		for _, size := range windowSizes(lo, hi, d.cfg.SizeStepRatio) {
			step := math.Max(1, float64(size)*d.cfg.SpatialStep)
			xs := windowPositions(w, size, step)
			for _, y := range windowPositions(h, size, step) {
				for _, x := range xs {
					if s := windowScore(in, x, y, size); s > d.cfg.CandidateScore {
						out = append(out, candidate{x: x, y: y, size: size, raw: s})
					}
				}
			}
		}
	}
	return out
}

// windowSizes grows window sides geometrically from lo and always ends with
// hi. Sizes are accumulated as floats so rounding does not compound.
func windowSizes(lo, hi int, stepRatio float64) []int {
	if hi < lo {
		return nil
	}
	if stepRatio <= 0 {
		if lo == hi {
			return []int{hi}
		}
		return []int{lo, hi}
	}

	var sizes []int
	for s := float64(lo); int(math.Round(s)) < hi; s *= 1 + stepRatio {
		sizes = append(sizes, int(math.Round(s)))
	}
	return append(sizes, hi)
}

// windowPositions returns the offsets along one axis at which a window of
// the given side still fits.
func windowPositions(extent, size int, step float64) []int {
	var pos []int
	for p := 0.0; int(math.Round(p))+size <= extent; p += step {
		pos = append(pos, int(math.Round(p)))
	}
	return pos
}

// suppress is greedy non-maximum suppression by raw score. Besides the IoU
// test, a window mostly nested inside a kept one is treated as the same face.
func (d *Detector) suppress(cands []candidate) []candidate {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].raw > cands[j].raw })

	var kept []candidate
	for _, c := range cands {
		if !d.overlapsAny(c, kept) {
			kept = append(kept, c)
		}
	}
	return kept
}

func (d *Detector) overlapsAny(c candidate, kept []candidate) bool {
	r := c.rect()
	for _, k := range kept {
		if iou(r, k.rect()) > d.cfg.IoUThreshold {
			return true
		}
		if d.cfg.ContainmentThreshold > 0 && containment(r, k.rect()) > d.cfg.ContainmentThreshold {
			return true
		}
	}
	return false
}

// subRect maps fractional window coordinates to pixels.
func subRect(x, y, size int, fx0, fy0, fx1, fy1 float64) rect {
	s := float64(size)
	return rect{
		x0: x + int(fx0*s),
		y0: y + int(fy0*s),
		x1: x + int(fx1*s),
		y1: y + int(fy1*s),
	}
}

// windowScore is the weighted sum of the four region evaluators.
func windowScore(in *integrals, x, y, size int) float64 {
	eyes := in.darkRatio(in.dark100, subRect(x, y, size, 0, 0.25, 1, 0.45))

	nose := 0.5
	if l := in.meanLuminance(subRect(x, y, size, 0.40, 0.40, 0.60, 0.70)); l >= 80 && l <= 200 {
		nose = 1.0
	}

	mouth := in.darkRatio(in.dark120, subRect(x, y, size, 0.30, 0.65, 0.70, 0.80))

	skin := math.Min(1, in.skinRatio(rect{x, y, x + size, y + size})/0.4)

	return 0.4*eyes + 0.2*nose + 0.2*mouth + 0.2*skin
}

func iou(a, b rect) float64 {
	inter := intersect(a, b).area()
	if inter == 0 {
		return 0
	}
	union := a.area() + b.area() - inter
	return float64(inter) / float64(union)
}

// containment is the fraction of a's area that lies inside b.
func containment(a, b rect) float64 {
	if a.area() == 0 {
		return 0
	}
	return float64(intersect(a, b).area()) / float64(a.area())
}

func intersect(a, b rect) rect {
	return rect{max(a.x0, b.x0), max(a.y0, b.y0), min(a.x1, b.x1), min(a.y1, b.y1)}
}

// SizeScore rates a face-to-frame area ratio: 1 at 15%, falling linearly to
// 0 at 8% and 40%, and 0 outside that range.
func SizeScore(ratio float64) float64 {
	const lo, peak, hi = 0.08, 0.15, 0.40
	switch {
	case ratio < lo || ratio > hi:
		return 0
	case ratio <= peak:
		return (ratio - lo) / (peak - lo)
	default:
		return (hi - ratio) / (hi - peak)
	}
}

// PositionScore is 1 minus the mean fractional offset of the box centre
// from the frame centre, clamped to [0,1].
func PositionScore(b domain.BoundingBox, w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	cx, cy := b.Center()
	dx := math.Abs(cx-float64(w)/2) / (float64(w) / 2)
	dy := math.Abs(cy-float64(h)/2) / (float64(h) / 2)
	return clamp01(1 - (dx+dy)/2)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
