// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"fmt"

	"github.com/goki/ki/kit"
)

// NormTypes are the normalizations that can be applied to the
// cumulative environment, on the input and on the output side.
type NormTypes int32

//go:generate stringer -type=NormTypes

var KiT_NormTypes = kit.Enums.AddEnum(NormTypesN, kit.NotBitFlag, nil)

func (ev NormTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *NormTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// The normalization types
const (
	// NormNone passes the environment through unchanged
	NormNone NormTypes = iota

	// NormLayer applies layer normalization over the whole [neurons, modes]
	// environment of each sample, with learnable gain and shift
	NormLayer

	NormTypesN
)

// Params are the configuration parameters of a theta Linear layer.
type Params struct {
	In           int       `min:"1" desc:"number of input neurons (in_features)"`
	Out          int       `min:"1" desc:"number of output neurons (out_features)"`
	ModesIn      int       `min:"1" def:"7" desc:"number of modulation modes per input neuron -- the components axis of the input must be this size"`
	ModesOut     int       `min:"1" def:"7" desc:"number of modulation modes emitted per output neuron, each as a quad of 4 parameters"`
	FullFeatures bool      `def:"true" desc:"each output neuron owns its own emission matrix -- otherwise a single emission matrix is shared by all output neurons"`
	NormEnvIn    NormTypes `def:"NormLayer" desc:"normalization of the cumulative input-side environment"`
	NormEnvOut   NormTypes `def:"NormLayer" desc:"normalization of the gated output-side environment"`
	NormEps      float32   `def:"1e-05" desc:"variance floor for layer normalization"`
	Seed         uint64    `desc:"random seed for weight initialization -- same seed gives identical weights"`

	QuadOut  int `inactive:"+" view:"-" json:"-" xml:"-" desc:"number of emitted values per output neuron = ModesOut * 4"`
	Features int `inactive:"+" view:"-" json:"-" xml:"-" desc:"number of distinct emission matrices = Out if FullFeatures, else 1"`
}

var KiT_Params = kit.Types.AddType(&Params{}, nil)

func (tp *Params) Defaults() {
	tp.ModesIn = 7
	tp.ModesOut = 7
	tp.FullFeatures = true
	tp.NormEnvIn = NormLayer
	tp.NormEnvOut = NormLayer
	tp.NormEps = 1e-5
	tp.Update()
}

func (tp *Params) Update() {
	tp.QuadOut = tp.ModesOut * 4
	if tp.FullFeatures {
		tp.Features = tp.Out
	} else {
		tp.Features = 1
	}
}

// Set sets the layer sizes and updates the derived values.
func (tp *Params) Set(in, out, modesIn, modesOut int) {
	tp.In = in
	tp.Out = out
	tp.ModesIn = modesIn
	tp.ModesOut = modesOut
	tp.Update()
}

// Validate returns an error if the sizes can not make a layer.
func (tp *Params) Validate() error {
	switch {
	case tp.In < 1:
		return fmt.Errorf("theta.Params: In must be >= 1, is %d", tp.In)
	case tp.Out < 1:
		return fmt.Errorf("theta.Params: Out must be >= 1, is %d", tp.Out)
	case tp.ModesIn < 1:
		return fmt.Errorf("theta.Params: ModesIn must be >= 1, is %d", tp.ModesIn)
	case tp.ModesOut < 1:
		return fmt.Errorf("theta.Params: ModesOut must be >= 1, is %d", tp.ModesOut)
	case tp.NormEnvIn < 0 || tp.NormEnvIn >= NormTypesN:
		return fmt.Errorf("theta.Params: invalid NormEnvIn %d", tp.NormEnvIn)
	case tp.NormEnvOut < 0 || tp.NormEnvOut >= NormTypesN:
		return fmt.Errorf("theta.Params: invalid NormEnvOut %d", tp.NormEnvOut)
	case tp.NormEps <= 0 && (tp.NormEnvIn == NormLayer || tp.NormEnvOut == NormLayer):
		return fmt.Errorf("theta.Params: NormEps must be > 0, is %g", tp.NormEps)
	}
	return nil
}
