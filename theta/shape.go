// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"errors"
	"fmt"

	"github.com/emer/etable/v2/etensor"
)

// ErrShape is returned, wrapped, for any tensor whose shape does not
// conform to the layer configuration.
var ErrShape = errors.New("theta: shape mismatch")

// batchShape checks x [..., In] and comps [..., ModesIn, In] against the
// layer configuration and returns their common leading (batch) dims.
func (tl *Linear) batchShape(x, comps *etensor.Float32) ([]int, error) {
	if x == nil || comps == nil {
		return nil, fmt.Errorf("%w: nil input", ErrShape)
	}
	if err := rowMajor("x", x); err != nil {
		return nil, err
	}
	if err := rowMajor("components", comps); err != nil {
		return nil, err
	}
	xs := x.Shapes()
	cs := comps.Shapes()
	nd := len(xs)
	if nd < 1 || xs[nd-1] != tl.Pars.In {
		return nil, fmt.Errorf("%w: x shape %v must end with In = %d", ErrShape, xs, tl.Pars.In)
	}
	if len(cs) != nd+1 {
		return nil, fmt.Errorf("%w: components shape %v must have one more dim than x shape %v", ErrShape, cs, xs)
	}
	if cs[nd-1] != tl.Pars.ModesIn || cs[nd] != tl.Pars.In {
		return nil, fmt.Errorf("%w: components shape %v must end with [ModesIn, In] = [%d, %d]", ErrShape, cs, tl.Pars.ModesIn, tl.Pars.In)
	}
	for d := 0; d < nd-1; d++ {
		if xs[d] != cs[d] {
			return nil, fmt.Errorf("%w: batch dims of x %v and components %v differ", ErrShape, xs, cs)
		}
	}
	return append([]int{}, xs[:nd-1]...), nil
}

// rowMajor returns an error unless the values of tsr are laid out in
// row-major order, which is how all the layer loops index them.
func rowMajor(what string, tsr *etensor.Float32) error {
	if !tsr.IsRowMajor() {
		return fmt.Errorf("%w: %s shape %v has strides %v, want row-major", ErrShape, what, tsr.Shapes(), tsr.Strides())
	}
	return nil
}

// checkShape returns an error unless tsr has exactly the given shape,
// in row-major order.
func checkShape(what string, tsr *etensor.Float32, shape []int) error {
	if err := rowMajor(what, tsr); err != nil {
		return err
	}
	ts := tsr.Shapes()
	if len(ts) != len(shape) {
		return fmt.Errorf("%w: %s shape %v, want %v", ErrShape, what, ts, shape)
	}
	for i := range ts {
		if ts[i] != shape[i] {
			return fmt.Errorf("%w: %s shape %v, want %v", ErrShape, what, ts, shape)
		}
	}
	return nil
}

// numRows returns the number of samples in a batch of given dims.
func numRows(batch []int) int {
	n := 1
	for _, d := range batch {
		n *= d
	}
	return n
}

// withDims returns batch dims followed by dims, as a new slice.
func withDims(batch []int, dims ...int) []int {
	sh := make([]int, 0, len(batch)+len(dims))
	sh = append(sh, batch...)
	return append(sh, dims...)
}

// row returns the r-th block of n values of s.
func row(s []float32, r, n int) []float32 {
	return s[r*n : (r+1)*n]
}
