// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modact

import (
	"fmt"

	"github.com/emer/etable/v2/minmax"
	"github.com/goki/ki/kit"
)

// The quad slots, in the order they are emitted.
const (
	Alpha = iota
	Beta
	Gamma
	Delta

	QuadN
)

// Params are the configuration parameters of a modulated activation.
type Params struct {
	Passive  bool       `desc:"activation owns its quads as learnable parameters, instead of receiving them with each input"`
	Modes    int        `viewif:"Passive" min:"1" def:"7" desc:"number of modes -- in active mode this is taken from the quads"`
	Features int        `viewif:"Passive" min:"1" desc:"number of features (last dim of the input) -- in active mode this is taken from the input"`
	Expected minmax.F32 `viewif:"Passive" desc:"expected range of the input, over which the passive mode centers are spread"`
}

var KiT_Params = kit.Types.AddType(&Params{}, nil)

func (ap *Params) Defaults() {
	ap.Modes = 7
	ap.Expected.Set(-2.5, 2.5)
}

func (ap *Params) Update() {
}

// Validate returns an error if passive parameters can not be built.
func (ap *Params) Validate() error {
	if !ap.Passive {
		return nil
	}
	switch {
	case ap.Modes < 1:
		return fmt.Errorf("modact.Params: Modes must be >= 1, is %d", ap.Modes)
	case ap.Features < 1:
		return fmt.Errorf("modact.Params: Features must be >= 1, is %d", ap.Features)
	case ap.Expected.Range() <= 0:
		return fmt.Errorf("modact.Params: Expected range [%g, %g] is empty", ap.Expected.Min, ap.Expected.Max)
	}
	return nil
}
