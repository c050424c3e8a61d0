package synth

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"github.com/pthm-cable/tecton/mesh"
	"github.com/pthm-cable/tecton/tectonics"
	"gonum.org/v1/gonum/spatial/r2"
)

// FBM layers octaves of normalized simplex noise.
type FBM struct {
	Scale      float64 // features per WrapWidth
	Octaves    int
	Lacunarity float64
	Gain       float64
	Contrast   float64 // exponent; higher keeps only the peaks
	noise      opensimplex.Noise
}

// NewFBM returns the default mantle noise stack for a seed.
func NewFBM(seed int64) *FBM {
	return &FBM{
		Scale:      3,
		Octaves:    4,
		Lacunarity: 2,
		Gain:       0.5,
		Contrast:   2,
		noise:      opensimplex.NewNormalized(seed),
	}
}

// Sample evaluates the noise at p in [0,1]. X is mapped onto a cylinder of
// circumference wrapWidth so the field is seamless across the wrap.
func (f *FBM) Sample(p r2.Vec, wrapWidth float64) float64 {
	theta := 2 * math.Pi * p.X / wrapWidth
	radius := f.Scale / (2 * math.Pi)
	y := p.Y * f.Scale / wrapWidth

	var sum, norm float64
	amp, freq := 1.0, 1.0
	for o := 0; o < f.Octaves; o++ {
		sum += amp * f.noise.Eval3(radius*freq*math.Cos(theta), radius*freq*math.Sin(theta), y*freq)
		norm += amp
		amp *= f.Gain
		freq *= f.Lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// MantleForcing samples upwelling from fbm, rescales it to span [0,1] and
// derives the flow as the outward (downhill) gradient of upwelling plus a
// swirl whose heading comes from a second noise channel.
func MantleForcing(m *mesh.Mesh, upwell, swirl *FBM) *tectonics.MantleForcing {
	n := m.CellCount
	mf := &tectonics.MantleForcing{
		Upwelling: make([]float64, n),
		Flow:      make([]r2.Vec, n),
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range m.Sites {
		v := math.Pow(upwell.Sample(s, m.WrapWidth), upwell.Contrast)
		mf.Upwelling[i] = v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if span := hi - lo; span > 1e-12 {
		for i := range mf.Upwelling {
			mf.Upwelling[i] = (mf.Upwelling[i] - lo) / span
		}
	} else {
		clear(mf.Upwelling)
	}

	for i, s := range m.Sites {
		var grad r2.Vec
		for _, nb := range m.NeighborsOf(i) {
			d := m.Delta(s, m.Sites[nb])
			l2 := r2.Norm2(d)
			if l2 <= 1e-12 {
				continue
			}
			grad = r2.Add(grad, r2.Scale((mf.Upwelling[nb]-mf.Upwelling[i])/l2, d))
		}
		flow := r2.Scale(-1, grad)
		if swirl != nil {
			angle := swirl.Sample(s, m.WrapWidth) * 2 * math.Pi
			flow = r2.Add(flow, r2.Vec{X: 0.05 * math.Cos(angle), Y: 0.05 * math.Sin(angle)})
		}
		mf.Flow[i] = flow
	}
	return mf
}
