// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modact

import (
	"errors"
	"fmt"
	"log"

	"github.com/chewxy/math32"
	"github.com/emer/dyna/learn"
	"github.com/emer/etable/v2/etensor"
	"github.com/goki/ki/kit"
)

// ErrShape is returned, wrapped, for any tensor whose shape does not
// conform to the activation configuration.
var ErrShape = errors.New("modact: shape mismatch")

// Activation is the modulated activation function.
type Activation struct {
	Pars  Params       `desc:"configuration"`
	Quads *learn.Param `desc:"passive mode only: learnable quads [Modes, 4, Features], shared by all samples"`
}

var KiT_Activation = kit.Types.AddType(&Activation{}, nil)

// New returns an activation for given parameters, with the passive
// quads initialized.
func New(pars Params) (*Activation, error) {
	pars.Update()
	if err := pars.Validate(); err != nil {
		log.Println(err)
		return nil, err
	}
	ac := &Activation{Pars: pars}
	if pars.Passive {
		ac.Quads = learn.NewParam("quads", []int{pars.Modes, QuadN, pars.Features}, []string{"Modes", "Quad", "Features"})
		ac.InitQuads()
	}
	return ac, nil
}

// InitQuads sets the passive quads so that the mode centers sit in the
// middle of Modes equal bins over the Expected range, each bump about one
// bin wide, all with equal amplitude and no skew.
func (ac *Activation) InitQuads() {
	if ac.Quads == nil {
		return
	}
	nm, nf := ac.Pars.Modes, ac.Pars.Features
	rng := ac.Pars.Expected.Range()
	bin := rng / float32(nm)
	qv := ac.Quads.Value.Values
	for n := 0; n < nm; n++ {
		vals := [QuadN]float32{
			Alpha: 1 / float32(nm),
			Beta:  1 / bin,
			Gamma: 0,
			Delta: ac.Pars.Expected.Min + (float32(n)+0.5)*bin,
		}
		for q, v := range vals {
			for f := 0; f < nf; f++ {
				qv[(n*QuadN+q)*nf+f] = v
			}
		}
	}
}

// Params returns the learnable parameters: the quads in passive mode,
// none in active mode.
func (ac *Activation) Params() learn.Params {
	if ac.Quads == nil {
		return nil
	}
	return learn.Params{ac.Quads}
}

// Signal is the result of applying the activation, and also records what
// Backward needs.
type Signal struct {
	X            *etensor.Float32 `desc:"activated signal [..., Features]"`
	Components   *etensor.Float32 `desc:"per mode contributions to the nonlinearity [..., Modes, Features]"`
	Nonlinearity *etensor.Float32 `desc:"multiplicative nonlinearity applied to the input [..., Features]"`

	batch  []int
	rows   int
	modes  int
	feats  int
	in     []float32
	quads  []float32
	shared bool
}

// Forward applies the activation to x [..., Features].  In active mode
// quads [..., Modes, 4, Features] must be given; in passive mode it must be
// nil and the learnable quads are used.
func (ac *Activation) Forward(x, quads *etensor.Float32) (*Signal, error) {
	sig, err := ac.signal(x, quads)
	if err != nil {
		return nil, err
	}
	nm, nf := sig.modes, sig.feats
	for r := 0; r < sig.rows; r++ {
		qr := sig.quadsRow(r)
		for f := 0; f < nf; f++ {
			xv := sig.in[r*nf+f]
			nl := float32(1)
			for n := 0; n < nm; n++ {
				al, be, ga, de := quad(qr, n, f, nf)
				d := xv - de
				c := al * math32.Exp(-(be*d)*(be*d)) * (1 + ga*d)
				sig.Components.Values[(r*nm+n)*nf+f] = c
				nl += c
			}
			sig.Nonlinearity.Values[r*nf+f] = nl
			sig.X.Values[r*nf+f] = xv * nl
		}
	}
	return sig, nil
}

// Backward propagates the upstream gradients w.r.t. the activated signal
// dX [..., Features] and the components dComps [..., Modes, Features], either
// of which can be nil.  It returns the gradient w.r.t. the input, and in
// active mode w.r.t. the quads; in passive mode the quads gradient is
// accumulated into the learnable quads and dQuads is nil.
func (ac *Activation) Backward(sig *Signal, dX, dComps *etensor.Float32) (dIn, dQuads *etensor.Float32, err error) {
	if sig == nil {
		return nil, nil, fmt.Errorf("modact.Activation Backward: nil signal")
	}
	for _, g := range []struct {
		name string
		tsr  *etensor.Float32
	}{{"dX", dX}, {"dComps", dComps}} {
		if err := rowMajor(g.name, g.tsr); err != nil {
			return nil, nil, err
		}
	}
	if dX != nil && !sameShape(dX.Shapes(), sig.X.Shapes()) {
		return nil, nil, fmt.Errorf("%w: dX shape %v, want %v", ErrShape, dX.Shapes(), sig.X.Shapes())
	}
	if dComps != nil && !sameShape(dComps.Shapes(), sig.Components.Shapes()) {
		return nil, nil, fmt.Errorf("%w: dComps shape %v, want %v", ErrShape, dComps.Shapes(), sig.Components.Shapes())
	}
	nm, nf := sig.modes, sig.feats
	dIn = etensor.NewFloat32(sig.X.Shapes(), nil, nil)
	var dq []float32
	if sig.shared {
		dq = ac.Quads.Grad.Values
	} else {
		dQuads = etensor.NewFloat32(withDims(sig.batch, nm, QuadN, nf), nil, nil)
		dq = dQuads.Values
	}
	for r := 0; r < sig.rows; r++ {
		qr := sig.quadsRow(r)
		dqr := dq
		if !sig.shared {
			dqr = dq[r*nm*QuadN*nf : (r+1)*nm*QuadN*nf]
		}
		for f := 0; f < nf; f++ {
			xv := sig.in[r*nf+f]
			var dy float32
			if dX != nil {
				dy = dX.Values[r*nf+f]
			}
			dxv := dy * sig.Nonlinearity.Values[r*nf+f]
			for n := 0; n < nm; n++ {
				// gradient w.r.t. this mode's contribution c
				u := dy * xv
				if dComps != nil {
					u += dComps.Values[(r*nm+n)*nf+f]
				}
				al, be, ga, de := quad(qr, n, f, nf)
				d := xv - de
				g := math32.Exp(-(be * d) * (be * d))
				h := 1 + ga*d
				dcd := al * (g*ga - 2*be*be*d*g*h)
				dxv += u * dcd
				dqr[(n*QuadN+Alpha)*nf+f] += u * g * h
				dqr[(n*QuadN+Beta)*nf+f] += u * al * h * g * (-2 * be * d * d)
				dqr[(n*QuadN+Gamma)*nf+f] += u * al * g * d
				dqr[(n*QuadN+Delta)*nf+f] -= u * dcd
			}
			dIn.Values[r*nf+f] = dxv
		}
	}
	return dIn, dQuads, nil
}

// signal checks the inputs and allocates the outputs.
func (ac *Activation) signal(x, quads *etensor.Float32) (*Signal, error) {
	if x == nil || x.NumDims() < 1 {
		return nil, fmt.Errorf("%w: x must have at least one dim", ErrShape)
	}
	if err := rowMajor("x", x); err != nil {
		return nil, err
	}
	if err := rowMajor("quads", quads); err != nil {
		return nil, err
	}
	xs := x.Shapes()
	nd := len(xs)
	sig := &Signal{batch: append([]int{}, xs[:nd-1]...), feats: xs[nd-1]}
	if ac.Pars.Passive {
		if quads != nil {
			return nil, fmt.Errorf("modact.Activation: passive activation does not take quads")
		}
		if sig.feats != ac.Pars.Features {
			return nil, fmt.Errorf("%w: x shape %v must end with Features = %d", ErrShape, xs, ac.Pars.Features)
		}
		sig.modes = ac.Pars.Modes
		sig.quads = ac.Quads.Value.Values
		sig.shared = true
	} else {
		if quads == nil {
			return nil, fmt.Errorf("modact.Activation: active activation needs quads")
		}
		qs := quads.Shapes()
		if len(qs) != nd+2 || qs[nd] != QuadN || qs[nd+1] != sig.feats || !sameShape(qs[:nd-1], sig.batch) {
			return nil, fmt.Errorf("%w: quads shape %v, want %v", ErrShape, qs, withDims(sig.batch, -1, QuadN, sig.feats))
		}
		sig.modes = qs[nd-1]
		sig.quads = append([]float32{}, quads.Values...)
	}
	sig.rows = 1
	for _, d := range sig.batch {
		sig.rows *= d
	}
	sig.in = append([]float32{}, x.Values...)
	sig.X = etensor.NewFloat32(xs, nil, nil)
	sig.Nonlinearity = etensor.NewFloat32(xs, nil, nil)
	sig.Components = etensor.NewFloat32(withDims(sig.batch, sig.modes, sig.feats), nil, nil)
	return sig, nil
}

// quadsRow returns the quads used for sample r.
func (sig *Signal) quadsRow(r int) []float32 {
	if sig.shared {
		return sig.quads
	}
	sz := sig.modes * QuadN * sig.feats
	return sig.quads[r*sz : (r+1)*sz]
}

// quad returns (alpha, beta, gamma, delta) of mode n, feature f.
func quad(qr []float32, n, f, nf int) (al, be, ga, de float32) {
	al = qr[(n*QuadN+Alpha)*nf+f]
	be = qr[(n*QuadN+Beta)*nf+f]
	ga = qr[(n*QuadN+Gamma)*nf+f]
	de = qr[(n*QuadN+Delta)*nf+f]
	return
}

// rowMajor returns an error unless a non-nil tsr has its values laid out
// in row-major order.
func rowMajor(what string, tsr *etensor.Float32) error {
	if tsr != nil && !tsr.IsRowMajor() {
		return fmt.Errorf("%w: %s shape %v has strides %v, want row-major", ErrShape, what, tsr.Shapes(), tsr.Strides())
	}
	return nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func withDims(batch []int, dims ...int) []int {
	sh := make([]int, 0, len(batch)+len(dims))
	sh = append(sh, batch...)
	return append(sh, dims...)
}
