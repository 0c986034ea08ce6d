// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package learn

import (
	"strings"
	"testing"

	"github.com/chewxy/math32"
)

func testParams() Params {
	wt := NewParam("weight", []int{2, 3}, []string{"Out", "In"})
	bias := NewParam("bias", []int{2}, []string{"Out"})
	for i := range wt.Value.Values {
		wt.Value.Values[i] = float32(i) + 0.5
	}
	bias.Fill(-1)
	return Params{wt, bias}
}

func TestParamsByName(t *testing.T) {
	ps := testParams()
	if ps.ByName("bias") != ps[1] {
		t.Errorf("ByName did not return bias param")
	}
	if ps.ByName("nope") != nil {
		t.Errorf("ByName returned param for unknown name")
	}
	if n := ps.NumValues(); n != 8 {
		t.Errorf("NumValues: got %d, want 8", n)
	}
	nms := ps.Names()
	if len(nms) != 2 || nms[0] != "weight" || nms[1] != "bias" {
		t.Errorf("Names: got %v", nms)
	}
	sh := ps[0].Shape()
	if len(sh) != 2 || sh[0] != 2 || sh[1] != 3 {
		t.Errorf("Shape: got %v", sh)
	}
}

func TestParamsSnapshotRestore(t *testing.T) {
	ps := testParams()
	snap := ps.Snapshot()
	ps[0].Fill(7)
	ps[1].Fill(7)
	if err := ps.Restore(snap); err != nil {
		t.Fatal(err)
	}
	for i, v := range ps[0].Value.Values {
		if v != float32(i)+0.5 {
			t.Errorf("weight %d: got %v after restore", i, v)
		}
	}
	for i, v := range ps[1].Value.Values {
		if v != -1 {
			t.Errorf("bias %d: got %v after restore", i, v)
		}
	}

	// snapshot values are copies
	snap["bias"][0] = 100
	if ps[1].Value.Values[0] == 100 {
		t.Errorf("snapshot shares memory with param")
	}
}

func TestParamsRestoreErrors(t *testing.T) {
	ps := testParams()
	snap := ps.Snapshot()
	delete(snap, "bias")
	ps[0].Fill(3)
	if err := ps.Restore(snap); err == nil {
		t.Errorf("expected error for missing param")
	}
	if ps[0].Value.Values[0] != 3 {
		t.Errorf("failed Restore modified values")
	}
	snap = ps.Snapshot()
	snap["weight"] = snap["weight"][:2]
	if err := ps.Restore(snap); err == nil {
		t.Errorf("expected error for short param")
	}
}

func TestParamsZeroGrad(t *testing.T) {
	ps := testParams()
	for _, pr := range ps {
		for i := range pr.Grad.Values {
			pr.Grad.Values[i] = 1
		}
	}
	ps.ZeroGrad()
	for _, pr := range ps {
		for i, g := range pr.Grad.Values {
			if g != 0 {
				t.Errorf("%s grad %d: got %v", pr.Name, i, g)
			}
		}
	}
}

func TestParamsPrefixed(t *testing.T) {
	ps := testParams()
	pp := ps.Prefixed("layer0")
	if pp[0].Name != "layer0.weight" || pp[1].Name != "layer0.bias" {
		t.Errorf("Prefixed names: %v", pp.Names())
	}
	pp[0].Value.Values[0] = 42
	if ps[0].Value.Values[0] != 42 {
		t.Errorf("Prefixed does not share tensors")
	}
}

func TestParamsCheckFinite(t *testing.T) {
	ps := testParams()
	if err := ps.CheckFinite(); err != nil {
		t.Error(err)
	}
	ps[1].Value.Values[1] = math32.NaN()
	err := ps.CheckFinite()
	if err == nil || !strings.Contains(err.Error(), "bias") {
		t.Errorf("expected NaN error naming bias, got %v", err)
	}
	ps[1].Value.Values[1] = math32.Inf(1)
	if ps.CheckFinite() == nil {
		t.Errorf("expected Inf error")
	}
}

func TestParamsSizeReport(t *testing.T) {
	rep := testParams().SizeReport()
	if !strings.Contains(rep, "weight") || !strings.Contains(rep, "Total") {
		t.Errorf("unexpected size report:\n%s", rep)
	}
}
