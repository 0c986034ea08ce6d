// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package learn holds the learnable parameters of the dyna layers.

Each Param pairs a value tensor with a gradient tensor of the same shape,
and is owned by exactly one layer.  Layers report their parameters as an
ordered Params list, which is what an external optimizer iterates over:
gradients are accumulated by the layers' Backward methods and cleared with
ZeroGrad between steps.

Snapshot and Restore copy values in and out keyed by parameter name, which
is all that a checkpoint format needs -- the on-disk format itself is left
to the surrounding experiment code.
*/
package learn
