// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package learn

import (
	"github.com/emer/etable/v2/etensor"
)

// Param is one learnable tensor with its accumulated gradient.
type Param struct {
	Name  string           `desc:"name of the parameter, unique within its layer"`
	Value *etensor.Float32 `desc:"current parameter values"`
	Grad  *etensor.Float32 `desc:"gradient accumulated by Backward since the last ZeroGrad, same shape as Value"`
}

// NewParam returns a zero-valued parameter of given shape.
// dims names the axes for display purposes, and can be nil.
func NewParam(name string, shape []int, dims []string) *Param {
	return &Param{
		Name:  name,
		Value: etensor.NewFloat32(shape, nil, dims),
		Grad:  etensor.NewFloat32(shape, nil, dims),
	}
}

// Len returns the number of values in the parameter.
func (pr *Param) Len() int {
	return len(pr.Value.Values)
}

// Shape returns the dimension sizes of the parameter.
func (pr *Param) Shape() []int {
	return pr.Value.Shapes()
}

// Fill sets all values to v.
func (pr *Param) Fill(v float32) {
	for i := range pr.Value.Values {
		pr.Value.Values[i] = v
	}
}

// ZeroGrad clears the accumulated gradient.
func (pr *Param) ZeroGrad() {
	for i := range pr.Grad.Values {
		pr.Grad.Values[i] = 0
	}
}
