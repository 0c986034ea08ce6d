// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modact_test

import (
	"testing"

	"github.com/emer/dyna/learn"
	"github.com/emer/dyna/modact"
	"github.com/emer/dyna/theta"
	"github.com/emer/etable/v2/etensor"
	"golang.org/x/exp/rand"
)

// stack is passive activation -> theta -> active activation -> theta,
// each layer feeding its components (or quads) to the next.
type stack struct {
	in   *modact.Activation
	l1   *theta.Linear
	act1 *modact.Activation
	l2   *theta.Linear
}

func newStack(t *testing.T, feats, hidden, out, modes int) *stack {
	t.Helper()
	ap := modact.Params{}
	ap.Defaults()
	ap.Passive = true
	ap.Modes = modes
	ap.Features = feats
	in, err := modact.New(ap)
	if err != nil {
		t.Fatal(err)
	}
	tp := theta.Params{}
	tp.Defaults()
	tp.Set(feats, hidden, modes, modes)
	tp.Seed = 1
	l1, err := theta.New(tp)
	if err != nil {
		t.Fatal(err)
	}
	ap = modact.Params{}
	ap.Defaults()
	act1, err := modact.New(ap)
	if err != nil {
		t.Fatal(err)
	}
	tp.Set(hidden, out, modes, modes)
	tp.Seed = 2
	l2, err := theta.New(tp)
	if err != nil {
		t.Fatal(err)
	}
	return &stack{in: in, l1: l1, act1: act1, l2: l2}
}

func (st *stack) params() learn.Params {
	var ps learn.Params
	ps = append(ps, st.in.Params().Prefixed("in")...)
	ps = append(ps, st.l1.Params().Prefixed("l1")...)
	ps = append(ps, st.l2.Params().Prefixed("l2")...)
	return ps
}

func TestStack(t *testing.T) {
	st := newStack(t, 6, 5, 3, 4)
	rnd := rand.New(rand.NewSource(3))
	x := etensor.NewFloat32([]int{2, 6}, nil, nil)
	for i := range x.Values {
		x.Values[i] = float32(rnd.NormFloat64())
	}

	s0, err := st.in.Forward(x, nil)
	if err != nil {
		t.Fatal(err)
	}
	t1, err := st.l1.ForwardTrace(s0.X, s0.Components)
	if err != nil {
		t.Fatal(err)
	}
	s1, err := st.act1.Forward(t1.Y, t1.Quads)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := st.l2.ForwardTrace(s1.X, s1.Components)
	if err != nil {
		t.Fatal(err)
	}
	if sh := t2.Y.Shapes(); len(sh) != 2 || sh[0] != 2 || sh[1] != 3 {
		t.Fatalf("stack output shape %v", sh)
	}

	dY := etensor.NewFloat32(t2.Y.Shapes(), nil, nil)
	for i := range dY.Values {
		dY.Values[i] = 1
	}
	dX1, dC1, err := st.l2.Backward(t2, dY, nil)
	if err != nil {
		t.Fatal(err)
	}
	dY1, dQ1, err := st.act1.Backward(s1, dX1, dC1)
	if err != nil {
		t.Fatal(err)
	}
	dX0, dC0, err := st.l1.Backward(t1, dY1, dQ1)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := st.in.Backward(s0, dX0, dC0); err != nil {
		t.Fatal(err)
	}

	ps := st.params()
	if ps.ByName("in.quads") == nil || ps.ByName("l2.emission") == nil {
		t.Fatalf("missing params: %v", ps.Names())
	}
	if err := ps.CheckFinite(); err != nil {
		t.Error(err)
	}
	for _, pr := range ps {
		// the last layer's quads are not consumed, so its emission gets no gradient
		if pr.Name == "l2.emission" || pr.Name == "l2.emission_scale" || pr.Name == "l2.emission_bias" || pr.Name == "l2.norm_env_output.weight" || pr.Name == "l2.norm_env_output.bias" {
			continue
		}
		nz := false
		for _, g := range pr.Grad.Values {
			if g != 0 {
				nz = true
				break
			}
		}
		if !nz {
			t.Errorf("%s received no gradient through the stack", pr.Name)
		}
	}
}
