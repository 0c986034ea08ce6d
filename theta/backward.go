// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"fmt"

	"github.com/emer/etable/v2/etensor"
)

// Backward propagates the upstream gradients dY [..., Out] and
// dQuads [..., ModesOut, 4, Out] back through the forward pass recorded in
// tr.  The gradients of all parameters are accumulated into their Grad
// tensors, and the gradients w.r.t. the input signal and components are
// returned.  Either upstream gradient can be nil, meaning zero.
func (tl *Linear) Backward(tr *Trace, dY, dQuads *etensor.Float32) (dX, dComps *etensor.Float32, err error) {
	if tr == nil {
		return nil, nil, fmt.Errorf("theta.Linear Backward: nil trace")
	}
	if err := tl.checkTrace(tr); err != nil {
		return nil, nil, err
	}
	tp := &tl.Pars
	in, out, mi := tp.In, tp.Out, tp.ModesIn
	if dY != nil {
		if err := checkShape("dY", dY, tr.Y.Shapes()); err != nil {
			return nil, nil, err
		}
	}
	if dQuads != nil {
		if err := checkShape("dQuads", dQuads, tr.Quads.Shapes()); err != nil {
			return nil, nil, err
		}
	}
	rows := tr.Rows
	dy := make([]float32, rows*out)
	if dY != nil {
		copy(dy, dY.Values)
	}
	deout := make([]float32, rows*out*mi)
	if dQuads != nil {
		for r := 0; r < rows; r++ {
			tl.emitBack(tr, r, dQuads.Values, dy, deout)
		}
	}

	dpx := make([]float32, rows*in)
	tl.Affine.Backward(tr.Percept, dy, rows, dpx)

	dX = etensor.NewFloat32(withDims(tr.Batch, in), nil, nil)
	dComps = etensor.NewFloat32(withDims(tr.Batch, mi, in), nil, nil)
	for r := 0; r < rows; r++ {
		tl.inputEnvBack(tr, r, dpx, deout, dX.Values, dComps.Values)
	}
	return dX, dComps, nil
}

// checkTrace returns an error unless every buffer of tr is sized for
// this layer, as it is when tr comes from its own ForwardTrace.
func (tl *Linear) checkTrace(tr *Trace) error {
	tp := &tl.Pars
	in, out, mi, qo := tp.In, tp.Out, tp.ModesIn, tp.QuadOut
	rows := tr.Rows
	if rows != numRows(tr.Batch) || tr.Y == nil || tr.Quads == nil {
		return fmt.Errorf("%w: trace of %d rows for batch %v is incomplete", ErrShape, rows, tr.Batch)
	}
	if err := checkShape("trace Y", tr.Y, withDims(tr.Batch, out)); err != nil {
		return err
	}
	if err := checkShape("trace quads", tr.Quads, withDims(tr.Batch, tp.ModesOut, 4, out)); err != nil {
		return err
	}
	for _, b := range []struct {
		name string
		vals []float32
		n    int
	}{
		{"X", tr.X, in},
		{"Comps", tr.Comps, mi * in},
		{"EnvIn", tr.EnvIn, in * mi},
		{"EnvBiased", tr.EnvBiased, in * mi},
		{"EnvNorm", tr.EnvNorm, in * mi},
		{"RstdIn", tr.RstdIn, 1},
		{"Percept", tr.Percept, in},
		{"EnvOut", tr.EnvOut, out * mi},
		{"Gated", tr.Gated, out * mi},
		{"GatedNorm", tr.GatedNorm, out * mi},
		{"RstdOut", tr.RstdOut, 1},
		{"Raw", tr.Raw, out * qo},
	} {
		if len(b.vals) != rows*b.n {
			return fmt.Errorf("%w: trace %s has %d values, want %d for %d rows of this layer", ErrShape, b.name, len(b.vals), rows*b.n, rows)
		}
	}
	return nil
}

// emitBack runs the emission side of sample r backward, from the quads
// gradient down to the output-side environment (deout), adding the
// gradient through the gating into dy.
func (tl *Linear) emitBack(tr *Trace, r int, dq, dy, deout []float32) {
	tp := &tl.Pars
	out, mi, qo := tp.Out, tp.ModesIn, tp.QuadOut
	em := tl.Emission.Value.Values
	dem := tl.Emission.Grad.Values
	sc := tl.EmissionScale.Value.Values
	dsc := tl.EmissionScale.Grad.Values
	dbi := tl.EmissionBias.Grad.Values
	raw := tr.Raw[r*out*qo : (r+1)*out*qo]
	gn := tr.GatedNorm[r*out*mi : (r+1)*out*mi]
	dqr := dq[r*qo*out : (r+1)*qo*out]

	dgn := make([]float32, out*mi)
	for o := 0; o < out; o++ {
		off := tl.feature(o) * mi * qo
		for k := 0; k < qo; k++ {
			g := dqr[k*out+o]
			dbi[o*qo+k] += g
			dsc[o*qo+k] += g * raw[o*qo+k]
			dr := g * sc[o*qo+k]
			for m := 0; m < mi; m++ {
				dem[off+m*qo+k] += gn[o*mi+m] * dr
				dgn[o*mi+m] += dr * em[off+m*qo+k]
			}
		}
	}

	dgt := make([]float32, out*mi)
	tl.NormOut.Backward(tr.Gated[r*out*mi:(r+1)*out*mi], tr.RstdOut[r], dgn, dgt)

	yr := tr.Y.Values[r*out : (r+1)*out]
	eout := tr.EnvOut[r*out*mi : (r+1)*out*mi]
	deo := deout[r*out*mi : (r+1)*out*mi]
	for o, yv := range yr {
		var sum float32
		for m := 0; m < mi; m++ {
			g := dgt[o*mi+m]
			deo[o*mi+m] = g * yv
			sum += g * eout[o*mi+m]
		}
		dy[r*out+o] += sum
	}
}

// inputEnvBack runs the input side of sample r backward from the
// perceptual signal gradient, then distributes both environment gradients
// onto the individual sensitivities and the components.
func (tl *Linear) inputEnvBack(tr *Trace, r int, dpx, deout, dx, dc []float32) {
	tp := &tl.Pars
	in, out, mi := tp.In, tp.Out, tp.ModesIn
	xr := tr.X[r*in : (r+1)*in]
	en := tr.EnvNorm[r*in*mi : (r+1)*in*mi]
	perc := tl.Perception.Value.Values
	dperc := tl.Perception.Grad.Values
	dpb := tl.PerceptBias.Grad.Values
	dpr := dpx[r*in : (r+1)*in]
	dxr := dx[r*in : (r+1)*in]

	den := make([]float32, in*mi)
	for i, xv := range xr {
		g := dpr[i]
		dpb[i] += g
		var sx float32
		for m := 0; m < mi; m++ {
			j := i*mi + m
			dperc[j] += g * xv * en[j]
			dp := g * perc[j]
			sx += dp * en[j]
			den[j] = dp * xv
		}
		dxr[i] = sx
	}

	deb := make([]float32, in*mi)
	tl.NormIn.Backward(tr.EnvBiased[r*in*mi:(r+1)*in*mi], tr.RstdIn[r], den, deb)

	ein := tr.EnvIn[r*in*mi : (r+1)*in*mi]
	es := tl.EnvSens.Value.Values
	des := tl.EnvSens.Grad.Values
	deb2 := tl.EnvBias.Grad.Values
	dein := make([]float32, in*mi)
	for j, g := range deb {
		deb2[j] += g
		des[j] += g * ein[j]
		dein[j] = g * es[j]
	}

	cmp := tr.Comps[r*mi*in : (r+1)*mi*in]
	dcr := dc[r*mi*in : (r+1)*mi*in]
	deo := deout[r*out*mi : (r+1)*out*mi]
	isens := tl.Individual.Value.Values
	disens := tl.Individual.Grad.Values
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			s := isens[o*in+i]
			var ds float32
			for m := 0; m < mi; m++ {
				dw := deo[o*mi+m] + dein[i*mi+m]
				ds += dw * cmp[m*in+i]
				dcr[m*in+i] += dw * s
			}
			disens[o*in+i] += ds
		}
	}
}
