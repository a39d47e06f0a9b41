package gryffin

import (
	"math"
)

//////
// Per-type update rules behind a common capability interface. The coordinator
// (GradientOptimizer) holds one instance per feature type and only invokes the
// variants whose feature mask is non-empty.
//////

// stepper is the capability shared by all per-type update rules: bind
// configures which positions the rule owns, step applies one update to a
// sample and returns the result.
type stepper interface {
	bind(kernel Kernel, positions []int, cardinalities []int)
	step(sample Sample) Sample
}

// adamStepper refines continuous positions with an Adam-style adaptive-rate
// gradient step on the acquisition surface (minimization convention, so the
// step descends). Gradients are estimated with central finite differences;
// no differentiability capability is required of the kernel beyond pointwise
// evaluation.
//
// The first- and second-moment accumulators are stateful across calls and
// owned exclusively by one optimizer instance. Sharing an adamStepper between
// concurrent refinement calls corrupts that state; use separate
// GradientOptimizer instances instead.
type adamStepper struct {
	eta     float64
	beta1   float64
	beta2   float64
	epsilon float64
	dx      float64

	kernel    Kernel
	positions []int

	m          []float64
	v          []float64
	iterations int
}

func newAdamStepper(eta, beta1, beta2, epsilon, dx float64) *adamStepper {
	return &adamStepper{
		eta:     eta,
		beta1:   beta1,
		beta2:   beta2,
		epsilon: epsilon,
		dx:      dx,
	}
}

// bind resets the moment accumulators: a new kernel means a new surface, so
// momentum from the previous one must not leak in.
func (a *adamStepper) bind(kernel Kernel, positions []int, _ []int) {
	a.kernel = kernel
	a.positions = positions
	a.m = make([]float64, len(positions))
	a.v = make([]float64, len(positions))
	a.iterations = 0
}

func (a *adamStepper) step(sample Sample) Sample {
	if len(a.positions) == 0 {
		return sample
	}

	grads := a.grad(sample)
	a.iterations++

	t := float64(a.iterations)
	out := cloneSample(sample)

	for i, pos := range a.positions {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*grads[i]
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*grads[i]*grads[i]

		mHat := a.m[i] / (1 - math.Pow(a.beta1, t))
		vHat := a.v[i] / (1 - math.Pow(a.beta2, t))

		out[pos] -= a.eta * mHat / (math.Sqrt(vHat) + a.epsilon)
	}

	return out
}

// grad estimates the partial derivatives of the kernel at the owned positions
// with central finite differences.
func (a *adamStepper) grad(sample Sample) []float64 {
	grads := make([]float64, len(a.positions))
	probe := cloneSample(sample)

	for i, pos := range a.positions {
		orig := probe[pos]

		probe[pos] = orig + a.dx
		hi := a.kernel(probe)

		probe[pos] = orig - a.dx
		lo := a.kernel(probe)

		probe[pos] = orig
		grads[i] = (hi - lo) / (2 * a.dx)
	}

	return grads
}

// optionScan is the shared local neighborhood search for integer-valued
// positions: for each owned position in turn it evaluates the kernel at every
// valid option and moves to the best found. Cardinality is enforced by
// construction, so no bounds check is needed afterwards.
type optionScan struct {
	kernel        Kernel
	positions     []int
	cardinalities []int
}

func (o *optionScan) bind(kernel Kernel, positions []int, cardinalities []int) {
	o.kernel = kernel
	o.positions = positions
	o.cardinalities = cardinalities
}

func (o *optionScan) step(sample Sample) Sample {
	out := cloneSample(sample)

	for i, pos := range o.positions {
		current := out[pos]
		bestOption := current
		bestValue := o.kernel(out)

		for option := 0; option < o.cardinalities[i]; option++ {
			out[pos] = float64(option)

			if value := o.kernel(out); value < bestValue {
				bestValue = value
				bestOption = float64(option)
			}
		}

		out[pos] = bestOption
	}

	return out
}

// naiveDiscreteStepper scans the integer buckets of discrete positions.
type naiveDiscreteStepper struct{ optionScan }

// naiveCategoricalStepper scans the options of categorical positions.
type naiveCategoricalStepper struct{ optionScan }
