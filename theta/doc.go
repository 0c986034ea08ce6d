// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package theta provides the parametric neuromodulated transformation layer
(ThetaLinear), a linear layer whose input is gated by a neuromodulatory
environment and which emits the modulation parameters for the next layer.

Each input neuron arrives with a signal value x and a profile of modulation
components (one value per mode).  All output neurons share that profile, but
each reacts to it through its own individual sensitivity.  Summing the
sensitivity-weighted profiles over the output neurons gives the cumulative
environment perceived on the input side, which after a per-neuron gain, bias
and optional normalization gates x into a "perceptual" signal that goes
through the standard affine projection.

Summing the same weighted profiles over the input neurons instead gives the
environment accumulated by each output neuron.  Gated by that neuron's
output value (its action potential, loosely) and projected through the
emission matrices, it becomes a set of 4 parameters per output mode -- the
quads consumed by a modulated activation downstream (see package modact).

Forward computes (y, quads).  ForwardTrace keeps the intermediate values,
from which Backward accumulates the gradients of all learnable parameters
and returns the gradients w.r.t. both inputs, so that layers can be stacked.

Input is the entry layer of a stack: an affine projection of a plain signal
followed by a passive modulated activation, whose signal and components
feed the first Linear.
*/
package theta
