// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"github.com/chewxy/math32"
	"github.com/emer/dyna/learn"
)

// Norm normalizes one sample of a cumulative environment.  The variant is
// chosen once at construction and is always invoked, so turning
// normalization off keeps the step in place as an identity.
type Norm interface {
	// Type returns the kind of normalization.
	Type() NormTypes

	// Forward normalizes x into y (same length) and returns the inverse
	// standard deviation used, which Backward needs.
	Forward(x, y []float32) float32

	// Backward computes dx from the upstream gradient dy, given the x and
	// rstd of the matching Forward, and accumulates the gradients of any
	// learnable parameters.
	Backward(x []float32, rstd float32, dy, dx []float32)

	// Params returns the learnable parameters, if any.
	Params() learn.Params
}

// NewNorm returns the Norm of given type for an environment of given
// shape.  Parameter names are prefixed with name.
func NewNorm(typ NormTypes, name string, shape []int, dims []string, eps float32) Norm {
	if typ == NormLayer {
		return NewLayerNorm(name, shape, dims, eps)
	}
	return &Identity{}
}

// Identity passes the environment through unchanged.
type Identity struct{}

func (nr *Identity) Type() NormTypes { return NormNone }

func (nr *Identity) Forward(x, y []float32) float32 {
	copy(y, x)
	return 1
}

func (nr *Identity) Backward(x []float32, rstd float32, dy, dx []float32) {
	copy(dx, dy)
}

func (nr *Identity) Params() learn.Params { return nil }

// LayerNorm normalizes all values of a sample to zero mean and unit
// variance, then applies an elementwise gain and shift.
type LayerNorm struct {
	Eps   float32      `desc:"variance floor"`
	Gain  *learn.Param `desc:"elementwise gain, initialized to 1"`
	Shift *learn.Param `desc:"elementwise shift, initialized to 0"`
}

// NewLayerNorm returns a LayerNorm over a block of given shape.
func NewLayerNorm(name string, shape []int, dims []string, eps float32) *LayerNorm {
	nr := &LayerNorm{Eps: eps}
	nr.Gain = learn.NewParam(name+".weight", shape, dims)
	nr.Shift = learn.NewParam(name+".bias", shape, dims)
	nr.Gain.Fill(1)
	return nr
}

func (nr *LayerNorm) Type() NormTypes { return NormLayer }

func (nr *LayerNorm) Params() learn.Params {
	return learn.Params{nr.Gain, nr.Shift}
}

// moments returns the mean and the inverse standard deviation of x
// (biased variance).
func (nr *LayerNorm) moments(x []float32) (mean, rstd float32) {
	n := float32(len(x))
	for _, v := range x {
		mean += v
	}
	mean /= n
	var vr float32
	for _, v := range x {
		d := v - mean
		vr += d * d
	}
	vr /= n
	return mean, 1 / math32.Sqrt(vr+nr.Eps)
}

func (nr *LayerNorm) Forward(x, y []float32) float32 {
	mean, rstd := nr.moments(x)
	gn := nr.Gain.Value.Values
	sh := nr.Shift.Value.Values
	for i, v := range x {
		y[i] = (v-mean)*rstd*gn[i] + sh[i]
	}
	return rstd
}

func (nr *LayerNorm) Backward(x []float32, rstd float32, dy, dx []float32) {
	n := float32(len(x))
	var mean float32
	for _, v := range x {
		mean += v
	}
	mean /= n
	gn := nr.Gain.Value.Values
	dgn := nr.Gain.Grad.Values
	dsh := nr.Shift.Grad.Values
	var sdz, sdzz float32
	for i, v := range x {
		z := (v - mean) * rstd
		dgn[i] += dy[i] * z
		dsh[i] += dy[i]
		dz := dy[i] * gn[i]
		sdz += dz
		sdzz += dz * z
	}
	sdz /= n
	sdzz /= n
	for i, v := range x {
		z := (v - mean) * rstd
		dx[i] = rstd * (dy[i]*gn[i] - sdz - z*sdzz)
	}
}
