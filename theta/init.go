// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package theta

import (
	"fmt"
	"math"

	"github.com/emer/etable/v2/etensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// InitIndividual draws the individual sensitivities from Normal(0, 1).
func InitIndividual(tsr *etensor.Float32, src rand.Source) {
	fillDist(tsr, distuv.Normal{Mu: 0, Sigma: 1, Src: src})
}

// InitEnv draws the environment sensitivities and biases from
// Uniform(-modesIn/in, +modesIn/in).
func InitEnv(tsr *etensor.Float32, modesIn, in int, src rand.Source) {
	bound := float64(modesIn) / float64(in)
	fillDist(tsr, distuv.Uniform{Min: -bound, Max: bound, Src: src})
}

// InitPerception draws the perception weights and biases from
// Normal(0, sqrt(1/modesIn)).
func InitPerception(tsr *etensor.Float32, modesIn int, src rand.Source) {
	fillDist(tsr, distuv.Normal{Mu: 0, Sigma: math.Sqrt(1 / float64(modesIn)), Src: src})
}

// InitEmission draws the emission weights from Uniform(-b, +b) with
// b = sqrt(3 / fan_in), fan_in computed from the tensor shape by FanIn.
func InitEmission(tsr *etensor.Float32, src rand.Source) error {
	fan, err := FanIn(tsr.Shapes())
	if err != nil {
		return err
	}
	bound := math.Sqrt(3 / float64(fan))
	fillDist(tsr, distuv.Uniform{Min: -bound, Max: bound, Src: src})
	return nil
}

// FanIn returns the fan-in of a weight tensor of given shape: the size of
// dim 1 times the product of all trailing dims (the receptive field).
func FanIn(shape []int) (int, error) {
	if len(shape) < 2 {
		return 0, fmt.Errorf("theta.FanIn: need at least 2 dims, shape is %v", shape)
	}
	fan := shape[1]
	for _, d := range shape[2:] {
		fan *= d
	}
	if fan < 1 {
		return 0, fmt.Errorf("theta.FanIn: empty receptive field for shape %v", shape)
	}
	return fan, nil
}

// randDist is what the distuv distributions have in common.
type randDist interface {
	Rand() float64
}

func fillDist(tsr *etensor.Float32, dist randDist) {
	for i := range tsr.Values {
		tsr.Values[i] = float32(dist.Rand())
	}
}
