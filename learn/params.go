// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package learn

import (
	"fmt"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/goki/mat32"
)

// Params is an ordered list of parameters.  The order is fixed at layer
// construction and is the order in which an optimizer should visit them.
type Params []*Param

// ByName returns the parameter with given name, or nil if not found.
func (ps Params) ByName(name string) *Param {
	for _, pr := range ps {
		if pr.Name == name {
			return pr
		}
	}
	return nil
}

// Names returns the parameter names in order.
func (ps Params) Names() []string {
	nms := make([]string, len(ps))
	for i, pr := range ps {
		nms[i] = pr.Name
	}
	return nms
}

// NumValues returns the total number of learnable values.
func (ps Params) NumValues() int {
	n := 0
	for _, pr := range ps {
		n += pr.Len()
	}
	return n
}

// ZeroGrad clears the gradients of all parameters.
func (ps Params) ZeroGrad() {
	for _, pr := range ps {
		pr.ZeroGrad()
	}
}

// Prefixed returns a copy of the list with every name prefixed by
// prefix + ".", sharing the same underlying tensors.  Used to
// compose the parameters of several layers into one namespace.
func (ps Params) Prefixed(prefix string) Params {
	np := make(Params, len(ps))
	for i, pr := range ps {
		np[i] = &Param{Name: prefix + "." + pr.Name, Value: pr.Value, Grad: pr.Grad}
	}
	return np
}

// Snapshot returns a copy of all parameter values keyed by name.
func (ps Params) Snapshot() map[string][]float32 {
	snap := make(map[string][]float32, len(ps))
	for _, pr := range ps {
		vals := make([]float32, pr.Len())
		copy(vals, pr.Value.Values)
		snap[pr.Name] = vals
	}
	return snap
}

// Restore copies values from a Snapshot back into the parameters.
// Every parameter must be present with a matching number of values;
// nothing is modified if any check fails.
func (ps Params) Restore(snap map[string][]float32) error {
	for _, pr := range ps {
		vals, ok := snap[pr.Name]
		if !ok {
			return fmt.Errorf("learn.Params Restore: parameter %q missing from snapshot", pr.Name)
		}
		if len(vals) != pr.Len() {
			return fmt.Errorf("learn.Params Restore: parameter %q has %d values, snapshot has %d", pr.Name, pr.Len(), len(vals))
		}
	}
	for _, pr := range ps {
		copy(pr.Value.Values, snap[pr.Name])
	}
	return nil
}

// CheckFinite returns an error naming the first parameter that holds a
// NaN or Inf value, or nil if all values are finite.
func (ps Params) CheckFinite() error {
	for _, pr := range ps {
		for i, v := range pr.Value.Values {
			if mat32.IsNaN(v) || mat32.IsInf(v, 0) {
				return fmt.Errorf("learn.Params: parameter %q has non-finite value %v at index %d", pr.Name, v, i)
			}
		}
	}
	return nil
}

// SizeReport returns a string reporting the shape and memory used by each
// parameter, values and gradients together.
func (ps Params) SizeReport() string {
	var b strings.Builder
	tot := 0
	for _, pr := range ps {
		mem := 2 * 4 * pr.Len()
		tot += mem
		fmt.Fprintf(&b, "%24s:\t Shape: %v\t Mem: %v\n", pr.Name, pr.Shape(), (datasize.ByteSize)(mem).HumanReadable())
	}
	fmt.Fprintf(&b, "\n%24s:\t Values: %d\t Mem: %v\n", "Total", ps.NumValues(), (datasize.ByteSize)(tot).HumanReadable())
	return b.String()
}
