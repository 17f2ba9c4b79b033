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

package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/awslabs/ar-qif-tools/analysis/config"
)

// Preset is the default command line of an external MaxSAT solver
type Preset struct {
	Binary  string
	Options []string
}

// Presets are the external solvers known by name. Binaries are relative to the working directory unless the
// configuration overrides them.
var Presets = map[string]Preset{
	"openwbo-glucose":  {Binary: "Open-WBO/bin/open-wbo-g"},
	"openwbo-mergesat": {Binary: "Open-WBO/bin/open-wbo-ms"},
	"uwrmaxsat":        {Binary: "UWrMaxSat-1.1w/bin/uwrmaxsat", Options: []string{"-m"}},
}

// External is a backend running a MaxSAT solver binary on a WDIMACS instance written to a temporary file
type External[V comparable] struct {
	*Problem[V]
	Name    string
	Binary  string
	Options []string
	RoundUp bool
	Logger  *config.LogGroup
}

// NewExternal returns an external backend running binary with options; the instance file is the last argument
func NewExternal[V comparable](name, binary string, options []string, bitWidth int, roundUp bool,
	logger *config.LogGroup) *External[V] {
	return &External[V]{
		Problem: NewProblem[V](bitWidth),
		Name:    name,
		Binary:  binary,
		Options: options,
		RoundUp: roundUp,
		Logger:  logger,
	}
}

// Solve writes the instance, runs the solver and parses its output. Solvers exit with non-zero status codes
// (10, 20, 30) in normal operation, so the output is parsed whatever the exit status. If the binary cannot be
// run, the failure is logged and ErrNoResult is returned.
func (e *External[V]) Solve(ctx context.Context) (Result[V], error) {
	f, err := os.CreateTemp("", "qif-*.wcnf")
	if err != nil {
		return Result[V]{}, fmt.Errorf("could not create instance file: %w", err)
	}
	defer os.Remove(f.Name())
	if err := e.WriteWDIMACS(f, e.RoundUp); err != nil {
		f.Close()
		return Result[V]{}, fmt.Errorf("could not write instance file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result[V]{}, fmt.Errorf("could not write instance file: %w", err)
	}

	args := append(append([]string{}, e.Options...), f.Name())
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	e.Logger.Debugf("running %s %v", e.Binary, args)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result[V]{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.Logger.Errorf("could not run solver %s (%s): %v", e.Name, e.Binary, err)
			return Result[V]{}, fmt.Errorf("solver %s: %w", e.Name, ErrNoResult)
		}
		e.Logger.Debugf("solver %s exited with status %d", e.Name, exitErr.ExitCode())
	}
	if stderr.Len() > 0 {
		e.Logger.Tracef("solver %s stderr: %s", e.Name, stderr.String())
	}
	res, err := e.ParseResult(&stdout)
	if err != nil {
		e.Logger.Warnf("solver %s: %v", e.Name, err)
		return Result[V]{}, err
	}
	return res, nil
}
