// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package dyna is the overall repository for the DyNA (dynamic neuromodulated
activation) layers implemented in the Go language (golang).

This top-level of the repository has no functional code -- everything is organized
into the following sub-packages:

* theta: the ThetaLinear layer, where a group of neurons shares the neuromodulatory
profile of its inputs but reacts to it individually, gating the input signal by the
perceived environment and emitting the modulation parameters for the next layer.

* modact: the modulated activation function that consumes those parameters (or owns
its own, in passive mode ahead of the first layer) and produces the modulation profile
for the next theta layer.

* learn: the named learnable parameters with their gradients, as used by all layers,
for external optimizers and checkpointing code.

Training loops, data I/O and optimizers are left to the surrounding experiment code:
each layer has a Forward / Backward pair over etensor.Float32 tensors, and exposes its
parameters as an ordered learn.Params list.
*/
package dyna
