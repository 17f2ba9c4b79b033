// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package leakage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/solver"
	"github.com/awslabs/ar-qif-tools/internal/metrics"
)

// Bounder runs an algorithm, records its metrics and applies the no-result policy of the configuration
type Bounder struct {
	Algorithm Algorithm
	// Policy is config.NoResultInfinite or config.NoResultAbort
	Policy  string
	Logger  *config.LogGroup
	Metrics *metrics.Metrics
}

// NewBounder returns a bounder using the algorithm and no-result policy of the configuration
func NewBounder(cfg *config.Config, logger *config.LogGroup, m *metrics.Metrics) (*Bounder, error) {
	alg, err := New(cfg.LeakageAlgorithm, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Bounder{Algorithm: alg, Policy: cfg.NoResultPolicy, Logger: logger, Metrics: m}, nil
}

// Name returns the name of the underlying algorithm
func (b *Bounder) Name() string {
	return b.Algorithm.Name()
}

// Compute runs the algorithm and records the call. Errors are returned as is.
func (b *Bounder) Compute(ctx context.Context, a *lattice.Arena, s SourcesAndSinks) (ComputationResult, error) {
	start := time.Now()
	res, err := b.Algorithm.Compute(ctx, a, s)
	outcome := metrics.Succeeded
	switch {
	case errors.Is(err, solver.ErrNoResult):
		outcome = metrics.NoResult
	case err != nil:
		outcome = metrics.Failed
	}
	b.Metrics.ObserveSolverCall(b.Algorithm.Name(), outcome, time.Since(start))
	b.Logger.Tracef("%s: %d sources, %d sinks, flow %v (%s)", b.Algorithm.Name(), len(s.Sources), len(s.Sinks),
		res.MaxFlow, outcome)
	return res, err
}

// Bound computes the leakage bound. When the algorithm has no result, the infinite policy reports an unbounded
// leakage with an empty cut and logs a warning, the abort policy returns the error.
func (b *Bounder) Bound(ctx context.Context, a *lattice.Arena, s SourcesAndSinks) (ComputationResult, error) {
	res, err := b.Compute(ctx, a, s)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, solver.ErrNoResult) && b.Policy != config.NoResultAbort {
		b.Logger.Warnf("%s did not compute a cut, the leakage is unbounded: %v", b.Algorithm.Name(), err)
		return InfiniteResult(), nil
	}
	return ComputationResult{}, fmt.Errorf("leakage computation failed: %w", err)
}
