// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"fmt"
	"testing"
)

// benchmark layers of increasing size, each with 7 modes in and out
var benchSizes = []int{16, 64, 128}

func BenchmarkForward(b *testing.B) {
	for _, sz := range benchSizes {
		b.Run(fmt.Sprintf("units=%d", sz), func(b *testing.B) {
			tl, err := New(testParams(sz, sz, 7, 7, true, NormLayer))
			if err != nil {
				b.Fatal(err)
			}
			x, comps := testInputs([]int{32}, sz, 7, 1)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := tl.Forward(x, comps); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBackward(b *testing.B) {
	for _, sz := range benchSizes {
		b.Run(fmt.Sprintf("units=%d", sz), func(b *testing.B) {
			tl, err := New(testParams(sz, sz, 7, 7, true, NormLayer))
			if err != nil {
				b.Fatal(err)
			}
			x, comps := testInputs([]int{32}, sz, 7, 1)
			tr, err := tl.ForwardTrace(x, comps)
			if err != nil {
				b.Fatal(err)
			}
			dY, dQuads := upstream(tr, 2)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := tl.Backward(tr, dY, dQuads); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
