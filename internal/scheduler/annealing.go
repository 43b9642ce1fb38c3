package scheduler

import (
	"context"
	"math"
	"math/rand"
)

// AnnealingObserver receives progress after every annealing iteration.
type AnnealingObserver func(iteration int, current, best float64)

type annealingOutcome struct {
	assignment  []int
	energy      float64
	iterations  int
	interrupted bool
}

type annealingParams struct {
	initialTemperature float64
	coolingRate        float64
	minTemperature     float64
	maxIterations      int
}

func defaultAnnealingParams() annealingParams {
	return annealingParams{
		initialTemperature: 1000,
		coolingRate:        0.995,
		minTemperature:     0.1,
		maxIterations:      10000,
	}
}

func runAnnealing(ctx context.Context, ds *domainSet, rng *rand.Rand, params annealingParams, observe AnnealingObserver) annealingOutcome {
	n := len(ds.values)
	current := make([]int, n)
	var movable []int
	for i := range current {
		current[i] = -1
		if len(ds.values[i]) > 0 {
			current[i] = rng.Intn(len(ds.values[i]))
			movable = append(movable, i)
		}
	}

	energy := func(assignment []int) float64 {
		return Energy(ds.problem, ds.constraints, ds.exams(assignment))
	}

	curEnergy := energy(current)
	best := append([]int(nil), current...)
	bestEnergy := curEnergy

	out := annealingOutcome{}
	if len(movable) == 0 {
		out.assignment, out.energy = best, bestEnergy
		return out
	}

	temperature := params.initialTemperature
	iteration := 0
	for iteration < params.maxIterations && temperature > params.minTemperature {
		if ctx.Err() != nil {
			out.interrupted = true
			break
		}
		iteration++

		course := movable[rng.Intn(len(movable))]
		previous := current[course]
		current[course] = rng.Intn(len(ds.values[course]))

		next := energy(current)
		if next < curEnergy || rng.Float64() < math.Exp((curEnergy-next)/temperature) {
			curEnergy = next
			if curEnergy < bestEnergy {
				bestEnergy = curEnergy
				copy(best, current)
			}
		} else {
			current[course] = previous
		}

		temperature *= params.coolingRate
		if observe != nil {
			observe(iteration, curEnergy, bestEnergy)
		}
	}

	out.assignment = best
	out.energy = bestEnergy
	out.iterations = iteration
	return out
}
