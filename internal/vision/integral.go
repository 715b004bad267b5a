package vision

// skinStride is the sampling lattice for the skin-tone evaluator.
const skinStride = 3

// integrals holds summed-area tables over one frame. Each table has
// (Width+1)*(Height+1) entries with a zero first row and column, so the sum
// over [x0,x1)×[y0,y1) is four lookups.
type integrals struct {
	w, h    int
	stride  int
	lum     []float64
	dark100 []int32
	dark120 []int32
	skin    []int32
}

func newIntegrals(f *Frame) *integrals {
	w, h := f.Width, f.Height
	stride := w + 1
	n := stride * (h + 1)
	in := &integrals{
		w:       w,
		h:       h,
		stride:  stride,
		lum:     make([]float64, n),
		dark100: make([]int32, n),
		dark120: make([]int32, n),
		skin:    make([]int32, n),
	}

	for y := 0; y < h; y++ {
		var rowLum float64
		var rowD100, rowD120, rowSkin int32
		for x := 0; x < w; x++ {
			r, g, b := f.RGB(x, y)
			l := luma(r, g, b)
			rowLum += l
			if l < 100 {
				rowD100++
			}
			if l < 120 {
				rowD120++
			}
			if x%skinStride == 0 && y%skinStride == 0 && skinTone(r, g, b) != skinNone {
				rowSkin++
			}

			i := (y+1)*stride + x + 1
			up := y*stride + x + 1
			in.lum[i] = in.lum[up] + rowLum
			in.dark100[i] = in.dark100[up] + rowD100
			in.dark120[i] = in.dark120[up] + rowD120
			in.skin[i] = in.skin[up] + rowSkin
		}
	}
	return in
}

// rect is a half-open pixel rectangle [x0,x1)×[y0,y1).
type rect struct {
	x0, y0, x1, y1 int
}

func (r rect) area() int {
	if r.x1 <= r.x0 || r.y1 <= r.y0 {
		return 0
	}
	return (r.x1 - r.x0) * (r.y1 - r.y0)
}

func (in *integrals) sumF(t []float64, r rect) float64 {
	s := in.stride
	return t[r.y1*s+r.x1] - t[r.y0*s+r.x1] - t[r.y1*s+r.x0] + t[r.y0*s+r.x0]
}

func (in *integrals) sumI(t []int32, r rect) int32 {
	s := in.stride
	return t[r.y1*s+r.x1] - t[r.y0*s+r.x1] - t[r.y1*s+r.x0] + t[r.y0*s+r.x0]
}

func (in *integrals) meanLuminance(r rect) float64 {
	a := r.area()
	if a == 0 {
		return 0
	}
	return in.sumF(in.lum, r) / float64(a)
}

func (in *integrals) darkRatio(t []int32, r rect) float64 {
	a := r.area()
	if a == 0 {
		return 0
	}
	return float64(in.sumI(t, r)) / float64(a)
}

// skinRatio is the fraction of lattice samples inside r that are skin-toned.
func (in *integrals) skinRatio(r rect) float64 {
	samples := latticeCount(r.x0, r.x1) * latticeCount(r.y0, r.y1)
	if samples == 0 {
		return 0
	}
	return float64(in.sumI(in.skin, r)) / float64(samples)
}

// latticeCount returns how many multiples of skinStride lie in [a,b).
func latticeCount(a, b int) int {
	if b <= a {
		return 0
	}
	return (b+skinStride-1)/skinStride - (a+skinStride-1)/skinStride
}

type skinClass uint8

const (
	skinNone skinClass = iota
	skinLight
	skinMedium
	skinDark
)

// skinTone classifies an RGB triplet. The rules are checked in order and the
// first match wins, so a pixel belongs to at most one class.
func skinTone(r, g, b uint8) skinClass {
	ri, gi, bi := int(r), int(g), int(b)
	maxC := max(ri, gi, bi)
	minC := min(ri, gi, bi)

	switch {
	case ri > 95 && gi > 40 && bi > 20 && maxC-minC > 15 && abs(ri-gi) > 15 && ri > gi && ri > bi:
		return skinLight
	case ri > gi && gi > bi && ri-bi > 20 && ri >= 60 && ri <= 220:
		return skinMedium
	case ri >= 30 && ri < 120 && ri > gi && gi >= bi && ri-bi >= 10:
		return skinDark
	}
	return skinNone
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
