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

// Package analysis runs the leakage analysis of a program: the handler configured by the user computes the
// dependencies of the low outputs of the main method on the high inputs, and a min-cut algorithm bounds the
// number of bits of the high inputs that the outputs leak.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/awslabs/ar-qif-tools/analysis/handlers"
	"github.com/awslabs/ar-qif-tools/analysis/lang"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/leakage"
	"github.com/awslabs/ar-qif-tools/internal/metrics"
)

// Result is the result of the leakage analysis of a program
type Result struct {
	// Leakage is the bound on the number of leaked bits, lattice.Infinity if it is unbounded
	Leakage float64
	// MinCut are the bits of a minimal cut between the outputs and the high inputs
	MinCut lattice.BitSet
	// Outputs is the low output global of the main method
	Outputs lattice.AppendOnlyValue
	// Inputs are the high input bits read while executing the main method
	Inputs lattice.BitSet
	// Return is the result of the execution of the main method
	Return *handlers.MethodReturnValue
	// Context is the state of the analysis, it holds the arena of the bits of the result
	Context *handlers.Context
}

// Options are the optional collaborators of an analysis. The zero value uses a logger configured by the config
// and no metrics.
type Options struct {
	Logger  *config.LogGroup
	Metrics *metrics.Metrics
}

// Analyze computes the leakage of the low outputs of program on its high inputs. The handler, the leakage
// algorithm and the no-result policy come from cfg.
func Analyze(ctx context.Context, program *lang.Program, cfg *config.Config) (*Result, error) {
	return AnalyzeWith(ctx, program, cfg, Options{})
}

// AnalyzeWith is Analyze with explicit collaborators. If opts.Metrics is set and cfg.MetricsFile is not empty,
// the metrics are written to the file once the analysis is done.
func AnalyzeWith(ctx context.Context, program *lang.Program, cfg *config.Config, opts Options) (*Result, error) {
	if err := program.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	bounder, err := leakage.NewBounder(cfg, logger, opts.Metrics)
	if err != nil {
		return nil, err
	}
	handler, err := handlers.New(cfg.Handler)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	actx := handlers.NewContext(ctx, program, cfg, logger, opts.Metrics, bounder)
	actx.SetHandler(handler)
	logger.Infof("Setting up handler %s ...", cfg.Handler)
	if err := handler.Setup(actx, program); err != nil {
		return nil, fmt.Errorf("handler setup failed: %w", err)
	}
	logger.Infof("Handler setup done (%.2f s).", time.Since(start).Seconds())

	ret, err := actx.Execute(program.Main, nil, nil, map[string]lattice.AppendOnlyValue{})
	if err != nil {
		return nil, err
	}
	res := &Result{
		Outputs: ret.Globals[lang.OutputGlobal(lattice.Low)],
		Inputs:  highInputs(actx.Arena(), ret.NewInputBits),
		Return:  ret,
		Context: actx,
	}
	logger.Debugf("%d output bits, %d high input bits", res.Outputs.Len(), res.Inputs.Len())

	start = time.Now()
	s := leakage.NewSourcesAndSinks(lattice.NewBitSet(res.Outputs.Bits...), res.Inputs)
	cut, err := bounder.Bound(ctx, actx.Arena(), s)
	if err != nil {
		return nil, err
	}
	res.Leakage, res.MinCut = cut.MaxFlow, cut.MinCut
	logger.Infof("Leakage computed with %s (%.2f s).", bounder.Name(), time.Since(start).Seconds())

	if opts.Metrics != nil && cfg.MetricsFile != "" {
		if err := opts.Metrics.WriteTo(cfg.MetricsFile); err != nil {
			logger.Warnf("could not write metrics: %v", err)
		}
	}
	return res, nil
}

func highInputs(a *lattice.Arena, bits lattice.BitSet) lattice.BitSet {
	res := lattice.BitSet{}
	for b := range bits {
		if sec, ok := a.InputLevel(b); ok && sec == lattice.High {
			res.Add(b)
		}
	}
	return res
}
