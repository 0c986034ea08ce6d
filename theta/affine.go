// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"math"

	"github.com/emer/dyna/learn"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/stat/distuv"
)

// Affine is the standard affine projection y = W x + b, applied to a
// batch of rows at once.
type Affine struct {
	In     int          `desc:"number of inputs"`
	Out    int          `desc:"number of outputs"`
	Weight *learn.Param `desc:"weights [Out, In]"`
	Bias   *learn.Param `desc:"biases [Out]"`
}

// NewAffine returns a zero-initialized affine projection.
// Parameter names are prefixed with name.
func NewAffine(name string, in, out int) *Affine {
	af := &Affine{In: in, Out: out}
	af.Weight = learn.NewParam(name+".weight", []int{out, in}, []string{"Out", "In"})
	af.Bias = learn.NewParam(name+".bias", []int{out}, []string{"Out"})
	return af
}

// InitWeights draws weights and biases from Uniform(-1/sqrt(In), +1/sqrt(In)).
func (af *Affine) InitWeights(src rand.Source) {
	bound := 1 / math.Sqrt(float64(af.In))
	fillDist(af.Weight.Value, distuv.Uniform{Min: -bound, Max: bound, Src: src})
	fillDist(af.Bias.Value, distuv.Uniform{Min: -bound, Max: bound, Src: src})
}

func (af *Affine) Params() learn.Params {
	return learn.Params{af.Weight, af.Bias}
}

func (af *Affine) general(data []float32, rows, cols int) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}

// Forward computes y[rows, Out] from x[rows, In].
func (af *Affine) Forward(x []float32, rows int, y []float32) {
	if rows == 0 {
		return
	}
	bias := af.Bias.Value.Values
	for r := 0; r < rows; r++ {
		copy(y[r*af.Out:(r+1)*af.Out], bias)
	}
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, af.general(x, rows, af.In), af.general(af.Weight.Value.Values, af.Out, af.In), 1, af.general(y, rows, af.Out))
}

// Backward accumulates the weight and bias gradients for upstream
// gradient dy[rows, Out] given the input x, and sets dx[rows, In].
func (af *Affine) Backward(x, dy []float32, rows int, dx []float32) {
	if rows == 0 {
		return
	}
	db := af.Bias.Grad.Values
	for r := 0; r < rows; r++ {
		for o, g := range dy[r*af.Out : (r+1)*af.Out] {
			db[o] += g
		}
	}
	gy := af.general(dy, rows, af.Out)
	blas32.Gemm(blas.Trans, blas.NoTrans, 1, gy, af.general(x, rows, af.In), 1, af.general(af.Weight.Grad.Values, af.Out, af.In))
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, gy, af.general(af.Weight.Value.Values, af.Out, af.In), 0, af.general(dx, rows, af.In))
}
