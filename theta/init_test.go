// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"math"
	"testing"

	"github.com/emer/etable/v2/etensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

func TestFanIn(t *testing.T) {
	cases := []struct {
		shape []int
		fan   int
		err   bool
	}{
		{[]int{3, 4}, 4, false},
		{[]int{1, 7, 28}, 196, false},
		{[]int{8, 2, 3, 3}, 18, false},
		{[]int{5}, 0, true},
		{[]int{3, 0}, 0, true},
	}
	for _, cs := range cases {
		fan, err := FanIn(cs.shape)
		if (err != nil) != cs.err {
			t.Errorf("shape %v: err %v", cs.shape, err)
		}
		if fan != cs.fan {
			t.Errorf("shape %v: fan %d, want %d", cs.shape, fan, cs.fan)
		}
	}
}

func stats64(vals []float32) (mean, std, mn, mx float64) {
	v := toF64(vals)
	mean, std = stat.MeanStdDev(v, nil)
	mn, mx = math.Inf(1), math.Inf(-1)
	for _, e := range v {
		mn = math.Min(mn, e)
		mx = math.Max(mx, e)
	}
	return
}

func TestInitializers(t *testing.T) {
	src := rand.NewSource(12)
	n := 20000

	ind := etensor.NewFloat32([]int{n, 1, 1}, nil, nil)
	InitIndividual(ind, src)
	mean, std, _, _ := stats64(ind.Values)
	if math.Abs(mean) > 0.05 || math.Abs(std-1) > 0.05 {
		t.Errorf("individual: mean %v std %v, want N(0, 1)", mean, std)
	}

	env := etensor.NewFloat32([]int{n, 4}, nil, nil)
	InitEnv(env, 4, 16, src)
	_, _, mn, mx := stats64(env.Values)
	if mn < -0.25 || mx > 0.25 || mx < 0.2 || mn > -0.2 {
		t.Errorf("env: range [%v, %v], want within and filling [-0.25, 0.25]", mn, mx)
	}

	perc := etensor.NewFloat32([]int{n, 4, 1}, nil, nil)
	InitPerception(perc, 4, src)
	mean, std, _, _ = stats64(perc.Values)
	if math.Abs(mean) > 0.05 || math.Abs(std-0.5) > 0.05 {
		t.Errorf("perception: mean %v std %v, want N(0, 0.5)", mean, std)
	}

	em := etensor.NewFloat32([]int{n, 3, 4}, nil, nil)
	if err := InitEmission(em, src); err != nil {
		t.Fatal(err)
	}
	bound := math.Sqrt(3.0 / 12.0)
	_, _, mn, mx = stats64(em.Values)
	if mn < -bound || mx > bound || mx < 0.9*bound || mn > -0.9*bound {
		t.Errorf("emission: range [%v, %v], want within and filling ±%v", mn, mx, bound)
	}

	bad := etensor.NewFloat32([]int{4}, nil, nil)
	if err := InitEmission(bad, src); err == nil {
		t.Errorf("expected FanIn error for 1D emission")
	}
}

func TestInitDeterministic(t *testing.T) {
	a := etensor.NewFloat32([]int{10, 3}, nil, nil)
	b := etensor.NewFloat32([]int{10, 3}, nil, nil)
	InitEnv(a, 3, 10, rand.NewSource(5))
	InitEnv(b, 3, 10, rand.NewSource(5))
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Errorf("value %d differs: %v vs %v", i, a.Values[i], b.Values[i])
		}
	}
}
