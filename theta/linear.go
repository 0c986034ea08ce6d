// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"fmt"
	"log"

	"github.com/emer/dyna/learn"
	"github.com/emer/etable/v2/etensor"
	"github.com/goki/ki/kit"
	"golang.org/x/exp/rand"
)

// Linear is the ThetaLinear layer: a group of Out neurons that all receive
// the same In input signals together with their modulation profiles, and
// react to them individually.  See the package doc for the overall scheme.
type Linear struct {
	Pars Params `desc:"layer configuration"`

	Affine        *Affine      `desc:"affine projection of the perceptual signal to the output"`
	Individual    *learn.Param `desc:"individual sensitivity of each output neuron to each input neuron's profile [Out, In, 1]"`
	EnvSens       *learn.Param `desc:"per input neuron, per mode gain on the cumulative environment [In, ModesIn]"`
	EnvBias       *learn.Param `desc:"per input neuron, per mode intrinsic contribution to the environment [In, ModesIn]"`
	Perception    *learn.Param `desc:"per input neuron projection of the modulated signal to a scalar [In, ModesIn, 1]"`
	PerceptBias   *learn.Param `desc:"bias on the perceptual signal [In]"`
	Emission      *learn.Param `desc:"emission matrices from the output environment to the quads [Features, ModesIn, QuadOut]"`
	EmissionScale *learn.Param `desc:"per output neuron scale on emitted values [Out, QuadOut]"`
	EmissionBias  *learn.Param `desc:"per output neuron bias on emitted values [Out, QuadOut]"`
	NormIn        Norm         `desc:"normalization of the input-side environment [In, ModesIn]"`
	NormOut       Norm         `desc:"normalization of the gated output-side environment [Out, ModesIn]"`
}

var KiT_Linear = kit.Types.AddType(&Linear{}, nil)

// New builds a Linear layer from the given parameters and initializes its
// weights from a source seeded with pars.Seed.
func New(pars Params) (*Linear, error) {
	pars.Update()
	if err := pars.Validate(); err != nil {
		log.Println(err)
		return nil, err
	}
	tl := &Linear{Pars: pars}
	tl.build()
	if err := tl.InitWeights(rand.NewSource(pars.Seed)); err != nil {
		log.Println(err)
		return nil, err
	}
	return tl, nil
}

// build allocates all parameters.
func (tl *Linear) build() {
	tp := &tl.Pars
	tl.Affine = NewAffine("linear", tp.In, tp.Out)
	tl.Individual = learn.NewParam("individual_sensitivity", []int{tp.Out, tp.In, 1}, []string{"Out", "In", "1"})
	tl.EnvSens = learn.NewParam("env_sensitivity", []int{tp.In, tp.ModesIn}, []string{"In", "ModesIn"})
	tl.EnvBias = learn.NewParam("env_bias", []int{tp.In, tp.ModesIn}, []string{"In", "ModesIn"})
	tl.Perception = learn.NewParam("perception", []int{tp.In, tp.ModesIn, 1}, []string{"In", "ModesIn", "1"})
	tl.PerceptBias = learn.NewParam("perceptual_bias", []int{tp.In}, []string{"In"})
	tl.Emission = learn.NewParam("emission", []int{tp.Features, tp.ModesIn, tp.QuadOut}, []string{"Features", "ModesIn", "QuadOut"})
	tl.EmissionScale = learn.NewParam("emission_scale", []int{tp.Out, tp.QuadOut}, []string{"Out", "QuadOut"})
	tl.EmissionBias = learn.NewParam("emission_bias", []int{tp.Out, tp.QuadOut}, []string{"Out", "QuadOut"})
	tl.NormIn = NewNorm(tp.NormEnvIn, "norm_env_input", []int{tp.In, tp.ModesIn}, []string{"In", "ModesIn"}, tp.NormEps)
	tl.NormOut = NewNorm(tp.NormEnvOut, "norm_env_output", []int{tp.Out, tp.ModesIn}, []string{"Out", "ModesIn"}, tp.NormEps)
}

// InitWeights re-initializes all parameters, drawing in a fixed order
// from src.  Normalization gains are reset to 1 and shifts to 0.
func (tl *Linear) InitWeights(src rand.Source) error {
	tp := &tl.Pars
	tl.Affine.InitWeights(src)
	InitIndividual(tl.Individual.Value, src)
	InitEnv(tl.EnvSens.Value, tp.ModesIn, tp.In, src)
	InitEnv(tl.EnvBias.Value, tp.ModesIn, tp.In, src)
	InitPerception(tl.Perception.Value, tp.ModesIn, src)
	InitPerception(tl.PerceptBias.Value, tp.ModesIn, src)
	if err := InitEmission(tl.Emission.Value, src); err != nil {
		return fmt.Errorf("theta.Linear InitWeights: %w", err)
	}
	tl.EmissionScale.Fill(1)
	tl.EmissionBias.Fill(0)
	for _, nr := range []Norm{tl.NormIn, tl.NormOut} {
		if ln, ok := nr.(*LayerNorm); ok {
			ln.Gain.Fill(1)
			ln.Shift.Fill(0)
		}
	}
	return nil
}

// Params returns all learnable parameters in a fixed order.
func (tl *Linear) Params() learn.Params {
	ps := tl.Affine.Params()
	ps = append(ps, tl.Individual, tl.EnvSens, tl.EnvBias)
	ps = append(ps, tl.NormIn.Params()...)
	ps = append(ps, tl.Perception, tl.PerceptBias)
	ps = append(ps, tl.NormOut.Params()...)
	ps = append(ps, tl.Emission, tl.EmissionScale, tl.EmissionBias)
	return ps
}

// Trace holds the inputs, outputs and intermediate values of one forward
// pass, as needed by Backward.  Per-sample values are stored flat, in
// row-major order over the flattened batch.
type Trace struct {
	Batch []int `desc:"leading (batch) dims shared by all inputs and outputs"`
	Rows  int   `desc:"number of samples = product of Batch"`

	X     []float32 `desc:"copy of input signal [Rows, In]"`
	Comps []float32 `desc:"copy of input components [Rows, ModesIn, In]"`

	EnvIn     []float32 `desc:"cumulative input-side environment: individually weighted profiles summed over output neurons [Rows, In, ModesIn]"`
	EnvBiased []float32 `desc:"EnvIn after sensitivity and bias, before normalization [Rows, In, ModesIn]"`
	EnvNorm   []float32 `desc:"normalized input-side environment [Rows, In, ModesIn]"`
	RstdIn    []float32 `desc:"inverse std of the input normalization per sample [Rows]"`
	Percept   []float32 `desc:"perceptual signal fed to the affine projection [Rows, In]"`

	EnvOut    []float32 `desc:"cumulative output-side environment: individually weighted profiles summed over input neurons [Rows, Out, ModesIn]"`
	Gated     []float32 `desc:"EnvOut gated by the output signal, before normalization [Rows, Out, ModesIn]"`
	GatedNorm []float32 `desc:"normalized gated environment [Rows, Out, ModesIn]"`
	RstdOut   []float32 `desc:"inverse std of the output normalization per sample [Rows]"`
	Raw       []float32 `desc:"raw emission before scale and bias [Rows, Out, QuadOut]"`

	Y     *etensor.Float32 `desc:"transformed signal [..., Out]"`
	Quads *etensor.Float32 `desc:"emitted parameter quads [..., ModesOut, 4, Out]"`
}

// Forward computes the transformed signal y [..., Out] and the emitted
// parameter quads [..., ModesOut, 4, Out] from the input signal x [..., In]
// and its modulation components [..., ModesIn, In].  Only the values that
// must outlive a single sample are allocated per batch; use ForwardTrace
// when Backward is to follow.
func (tl *Linear) Forward(x, comps *etensor.Float32) (y, quads *etensor.Float32, err error) {
	batch, err := tl.batchShape(x, comps)
	if err != nil {
		return nil, nil, err
	}
	tp := &tl.Pars
	in, out, mi, qo := tp.In, tp.Out, tp.ModesIn, tp.QuadOut
	rows := numRows(batch)

	ein := make([]float32, in*mi)
	eb := make([]float32, in*mi)
	en := make([]float32, in*mi)
	px := make([]float32, rows*in)
	eout := make([]float32, rows*out*mi)
	y = etensor.NewFloat32(withDims(batch, out), nil, nil)
	quads = etensor.NewFloat32(withDims(batch, tp.ModesOut, 4, out), nil, nil)

	for r := 0; r < rows; r++ {
		tl.inputEnv(row(x.Values, r, in), row(comps.Values, r, mi*in), ein, eb, en, row(px, r, in), row(eout, r, out*mi))
	}
	tl.Affine.Forward(px, rows, y.Values)

	gt := make([]float32, out*mi)
	gn := make([]float32, out*mi)
	raw := make([]float32, out*qo)
	for r := 0; r < rows; r++ {
		tl.emit(row(y.Values, r, out), row(eout, r, out*mi), gt, gn, raw, row(quads.Values, r, qo*out))
	}
	return y, quads, nil
}

// ForwardTrace is Forward, also keeping the values that Backward needs.
func (tl *Linear) ForwardTrace(x, comps *etensor.Float32) (*Trace, error) {
	batch, err := tl.batchShape(x, comps)
	if err != nil {
		return nil, err
	}
	tp := &tl.Pars
	in, out, mi, qo := tp.In, tp.Out, tp.ModesIn, tp.QuadOut
	rows := numRows(batch)

	tr := &Trace{Batch: batch, Rows: rows}
	tr.X = append([]float32{}, x.Values...)
	tr.Comps = append([]float32{}, comps.Values...)
	tr.EnvIn = make([]float32, rows*in*mi)
	tr.EnvBiased = make([]float32, rows*in*mi)
	tr.EnvNorm = make([]float32, rows*in*mi)
	tr.RstdIn = make([]float32, rows)
	tr.Percept = make([]float32, rows*in)
	tr.EnvOut = make([]float32, rows*out*mi)
	tr.Gated = make([]float32, rows*out*mi)
	tr.GatedNorm = make([]float32, rows*out*mi)
	tr.RstdOut = make([]float32, rows)
	tr.Raw = make([]float32, rows*out*qo)
	tr.Y = etensor.NewFloat32(withDims(batch, out), nil, nil)
	tr.Quads = etensor.NewFloat32(withDims(batch, tp.ModesOut, 4, out), nil, nil)

	for r := 0; r < rows; r++ {
		tr.RstdIn[r] = tl.inputEnv(row(tr.X, r, in), row(tr.Comps, r, mi*in), row(tr.EnvIn, r, in*mi), row(tr.EnvBiased, r, in*mi), row(tr.EnvNorm, r, in*mi), row(tr.Percept, r, in), row(tr.EnvOut, r, out*mi))
	}
	tl.Affine.Forward(tr.Percept, rows, tr.Y.Values)
	for r := 0; r < rows; r++ {
		tr.RstdOut[r] = tl.emit(row(tr.Y.Values, r, out), row(tr.EnvOut, r, out*mi), row(tr.Gated, r, out*mi), row(tr.GatedNorm, r, out*mi), row(tr.Raw, r, out*qo), row(tr.Quads.Values, r, qo*out))
	}
	return tr, nil
}

// inputEnv computes, for one sample with signal xr [In] and components
// cmp [ModesIn, In], the individually weighted profiles summed over outputs
// (ein, then biased eb and normalized en [In, ModesIn]) and over inputs
// (eout [Out, ModesIn]), and the perceptual signal px [In].  It returns the
// inverse std of the input normalization.
func (tl *Linear) inputEnv(xr, cmp, ein, eb, en, px, eout []float32) float32 {
	tp := &tl.Pars
	in, out, mi := tp.In, tp.Out, tp.ModesIn
	isens := tl.Individual.Value.Values
	clear(ein)
	clear(eout)

	// each output neuron's weighted view of each input neuron's profile
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			s := isens[o*in+i]
			for m := 0; m < mi; m++ {
				w := s * cmp[m*in+i]
				ein[i*mi+m] += w
				eout[o*mi+m] += w
			}
		}
	}

	es := tl.EnvSens.Value.Values
	ebias := tl.EnvBias.Value.Values
	for j, v := range ein {
		eb[j] = v*es[j] + ebias[j]
	}
	rstd := tl.NormIn.Forward(eb, en)

	perc := tl.Perception.Value.Values
	pb := tl.PerceptBias.Value.Values
	for i, xv := range xr {
		var sum float32
		for m := 0; m < mi; m++ {
			sum += (xv * en[i*mi+m]) * perc[i*mi+m]
		}
		px[i] = sum + pb[i]
	}
	return rstd
}

// emit gates the output-side environment eout of one sample by its output
// signal yr, normalizes it (gt, gn [Out, ModesIn]) and projects it through
// the emission matrices (raw [Out, QuadOut]) into the quads qd
// [ModesOut, 4, Out].  It returns the inverse std of the output
// normalization.
func (tl *Linear) emit(yr, eout, gt, gn, raw, qd []float32) float32 {
	tp := &tl.Pars
	out, mi, qo := tp.Out, tp.ModesIn, tp.QuadOut
	for o, yv := range yr {
		for m := 0; m < mi; m++ {
			gt[o*mi+m] = eout[o*mi+m] * yv
		}
	}
	rstd := tl.NormOut.Forward(gt, gn)

	em := tl.Emission.Value.Values
	sc := tl.EmissionScale.Value.Values
	bi := tl.EmissionBias.Value.Values
	for o := 0; o < out; o++ {
		emo := em[tl.feature(o)*mi*qo:]
		for k := 0; k < qo; k++ {
			var sum float32
			for m := 0; m < mi; m++ {
				sum += gn[o*mi+m] * emo[m*qo+k]
			}
			raw[o*qo+k] = sum
			// [Out, ModesOut*4] -> [ModesOut, 4, Out]
			qd[k*out+o] = sum*sc[o*qo+k] + bi[o*qo+k]
		}
	}
	return rstd
}

// feature returns the emission matrix used by output neuron o: its own
// when FullFeatures, otherwise the single shared one.
func (tl *Linear) feature(o int) int {
	if tl.Pars.Features == 1 {
		return 0
	}
	return o
}
