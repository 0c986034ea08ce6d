// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"golang.org/x/exp/rand"
)

func TestAffine(t *testing.T) {
	af := NewAffine("linear", 3, 2)
	af.InitWeights(rand.NewSource(2))
	bound := float32(1 / math.Sqrt(3))
	for _, pr := range af.Params() {
		for _, v := range pr.Value.Values {
			if math32.Abs(v) > bound {
				t.Errorf("%s init %v out of ±%v", pr.Name, v, bound)
			}
		}
	}
	copy(af.Weight.Value.Values, []float32{1, 2, 3, -1, 0.5, 0})
	copy(af.Bias.Value.Values, []float32{0.1, -0.2})
	x := []float32{1, 0, -1, 2, 1, 0.5}
	y := make([]float32, 4)
	af.Forward(x, 2, y)
	want := []float32{1 - 3 + 0.1, -1 - 0.2, 2 + 2 + 1.5 + 0.1, -2 + 0.5 - 0.2}
	for i := range want {
		if dif := math32.Abs(y[i] - want[i]); dif > difTol {
			t.Errorf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}

	dy := []float32{1, 0, 0.5, -1}
	dx := make([]float32, 6)
	af.Backward(x, dy, 2, dx)
	// dx = dy W
	wantDx := []float32{1, 2, 3, 0.5 + 1, 1 - 0.5, 1.5}
	for i := range wantDx {
		if dif := math32.Abs(dx[i] - wantDx[i]); dif > difTol {
			t.Errorf("dx[%d] = %v, want %v", i, dx[i], wantDx[i])
		}
	}
	// dW = dy^T x
	wantDw := []float32{1 + 1, 0 + 0.5, -1 + 0.25, -2, -1, -0.5}
	for i := range wantDw {
		if dif := math32.Abs(af.Weight.Grad.Values[i] - wantDw[i]); dif > difTol {
			t.Errorf("dW[%d] = %v, want %v", i, af.Weight.Grad.Values[i], wantDw[i])
		}
	}
	wantDb := []float32{1.5, -1}
	for i := range wantDb {
		if dif := math32.Abs(af.Bias.Grad.Values[i] - wantDb[i]); dif > difTol {
			t.Errorf("db[%d] = %v, want %v", i, af.Bias.Grad.Values[i], wantDb[i])
		}
	}
}
