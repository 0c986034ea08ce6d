// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"fmt"
	"log"

	"github.com/emer/dyna/learn"
	"github.com/emer/dyna/modact"
	"github.com/emer/etable/v2/etensor"
	"github.com/emer/etable/v2/minmax"
	"github.com/goki/ki/kit"
	"golang.org/x/exp/rand"
)

// InputParams are the configuration parameters of an Input layer.
type InputParams struct {
	In       int        `min:"1" desc:"number of plain input signals"`
	Out      int        `min:"1" desc:"number of output neurons, each emitting a signal and a profile of Modes components"`
	Modes    int        `min:"1" def:"7" desc:"number of modulation modes per output neuron"`
	Expected minmax.F32 `desc:"expected range of the projected signal, over which the mode centers are spread"`
	Seed     uint64     `desc:"random seed for weight initialization"`
}

var KiT_InputParams = kit.Types.AddType(&InputParams{}, nil)

func (ip *InputParams) Defaults() {
	ip.Modes = 7
	ip.Expected.Set(-2.5, 2.5)
}

func (ip *InputParams) Update() {
}

// Validate returns an error if the layer can not be built.
func (ip *InputParams) Validate() error {
	switch {
	case ip.In < 1:
		return fmt.Errorf("theta.InputParams: In must be >= 1, is %d", ip.In)
	case ip.Out < 1:
		return fmt.Errorf("theta.InputParams: Out must be >= 1, is %d", ip.Out)
	}
	return nil
}

// ActParams returns the passive activation parameters for the output side.
func (ip *InputParams) ActParams() modact.Params {
	ap := modact.Params{}
	ap.Defaults()
	ap.Passive = true
	ap.Modes = ip.Modes
	ap.Features = ip.Out
	ap.Expected = ip.Expected
	return ap
}

// Input is the entry layer of a theta stack: it projects a plain signal
// [..., In] to Out neurons and passes it through a passive modulated
// activation, giving the signal [..., Out] and components
// [..., Modes, Out] that a Linear layer reads.
type Input struct {
	Pars   InputParams        `desc:"layer configuration"`
	Affine *Affine            `desc:"affine projection of the plain signal"`
	Act    *modact.Activation `desc:"passive activation, owning its quads"`
}

var KiT_Input = kit.Types.AddType(&Input{}, nil)

// NewInput builds an Input layer and initializes its weights from a
// source seeded with pars.Seed.
func NewInput(pars InputParams) (*Input, error) {
	pars.Update()
	if err := pars.Validate(); err != nil {
		log.Println(err)
		return nil, err
	}
	act, err := modact.New(pars.ActParams())
	if err != nil {
		return nil, fmt.Errorf("theta.NewInput: %w", err)
	}
	ti := &Input{Pars: pars, Act: act}
	ti.Affine = NewAffine("linear", pars.In, pars.Out)
	ti.InitWeights(rand.NewSource(pars.Seed))
	return ti, nil
}

// InitWeights draws the projection from src and resets the activation
// quads to their centers over the expected range.
func (ti *Input) InitWeights(src rand.Source) {
	ti.Affine.InitWeights(src)
	ti.Act.InitQuads()
}

// Params returns all learnable parameters: the projection, then the
// activation quads under the "activation" prefix.
func (ti *Input) Params() learn.Params {
	ps := ti.Affine.Params()
	return append(ps, ti.Act.Params().Prefixed("activation")...)
}

// InputTrace is the record of one Input forward pass.
type InputTrace struct {
	Batch  []int          `desc:"leading (batch) dims"`
	Rows   int            `desc:"number of samples = product of Batch"`
	X      []float32      `desc:"copy of the plain input [Rows, In]"`
	Signal *modact.Signal `desc:"activated signal: X [..., Out] and Components [..., Modes, Out]"`
}

// Forward projects x [..., In] and activates it.  The returned trace
// carries the signal and components for the next layer in Signal.
func (ti *Input) Forward(x *etensor.Float32) (*InputTrace, error) {
	if x == nil || x.NumDims() < 1 {
		return nil, fmt.Errorf("%w: x must have at least one dim", ErrShape)
	}
	if err := rowMajor("x", x); err != nil {
		return nil, err
	}
	xs := x.Shapes()
	nd := len(xs)
	if xs[nd-1] != ti.Pars.In {
		return nil, fmt.Errorf("%w: x shape %v must end with In = %d", ErrShape, xs, ti.Pars.In)
	}
	batch := append([]int{}, xs[:nd-1]...)
	tr := &InputTrace{Batch: batch, Rows: numRows(batch)}
	tr.X = append([]float32{}, x.Values...)
	lin := etensor.NewFloat32(withDims(batch, ti.Pars.Out), nil, nil)
	ti.Affine.Forward(tr.X, tr.Rows, lin.Values)
	sig, err := ti.Act.Forward(lin, nil)
	if err != nil {
		return nil, err
	}
	tr.Signal = sig
	return tr, nil
}

// Backward propagates the gradients w.r.t. the signal dX [..., Out] and
// components dComps [..., Modes, Out], either of which can be nil, into
// the projection and quads gradients, and returns the gradient w.r.t. the
// plain input.
func (ti *Input) Backward(tr *InputTrace, dX, dComps *etensor.Float32) (*etensor.Float32, error) {
	if tr == nil || tr.Signal == nil {
		return nil, fmt.Errorf("theta.Input Backward: nil trace")
	}
	if tr.Rows != numRows(tr.Batch) || len(tr.X) != tr.Rows*ti.Pars.In {
		return nil, fmt.Errorf("%w: trace of batch %v does not fit this layer", ErrShape, tr.Batch)
	}
	if err := checkShape("trace signal", tr.Signal.X, withDims(tr.Batch, ti.Pars.Out)); err != nil {
		return nil, err
	}
	dLin, _, err := ti.Act.Backward(tr.Signal, dX, dComps)
	if err != nil {
		return nil, err
	}
	dIn := etensor.NewFloat32(withDims(tr.Batch, ti.Pars.In), nil, nil)
	ti.Affine.Backward(tr.X, dLin.Values, tr.Rows, dIn.Values)
	return dIn, nil
}
