// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package modact provides the modulated activation function that consumes the
parameter quads emitted by a theta.Linear layer.

Each mode contributes a skewed gaussian bump to the nonlinearity applied to
each feature x:

	d  = x - delta
	c  = alpha * exp(-(beta * d)^2) * (1 + gamma * d)
	nl = 1 + sum over modes of c
	y  = x * nl

The per-mode contributions c are also returned as the components tensor
[..., modes, features], which is exactly the modulation profile the next
theta.Linear layer expects.

In passive mode the activation owns its quads as learnable parameters,
initialized to spread the mode centers evenly over an expected input range,
and is used ahead of the first theta layer.  In active mode the quads come
from the previous theta layer, per sample.
*/
package modact
