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
	"bytes"
	"context"
	"embed"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/solver"
	"github.com/awslabs/ar-qif-tools/internal/metrics"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

//go:embed testdata/*.yaml
var testdata embed.FS

func loadTestGraph(t *testing.T, name string) *Graph {
	f, err := testdata.Open("testdata/" + name)
	if err != nil {
		t.Fatalf("could not open %s: %v", name, err)
	}
	defer f.Close()
	g, err := LoadGraph(f)
	if err != nil {
		t.Fatalf("could not load %s: %v", name, err)
	}
	return g
}

func testConfig() (*config.Config, *config.LogGroup) {
	cfg := config.NewDefault()
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return cfg, logger
}

func TestMinCut(t *testing.T) {
	tests := []struct {
		file      string
		algorithm string
		cut       []string
		flow      float64
	}{
		{"single-sink.yaml", MaxSATGini, []string{"s"}, 5},
		{"single-sink.yaml", MaxFlowName, []string{"s"}, 5},
		{"infinite-domination.yaml", MaxSATGini, []string{"a1", "a2", "a3"}, 6},
		{"infinite-domination.yaml", MaxFlowName, []string{"a1", "a2", "a3"}, 6},
		{"interval.yaml", MaxSATGini, []string{}, 2},
		{"interval.yaml", MaxFlowName, []string{"h0", "h1", "h2", "h3"}, 4},
		{"no-flow.yaml", MaxSATGini, []string{}, 0},
		{"no-flow.yaml", MaxFlowName, []string{}, 0},
	}
	cfg, logger := testConfig()
	for _, test := range tests {
		t.Run(test.file+"/"+test.algorithm, func(t *testing.T) {
			g := loadTestGraph(t, test.file)
			alg, err := New(test.algorithm, cfg, logger)
			if err != nil {
				t.Fatalf("could not create algorithm: %v", err)
			}
			res, err := alg.Compute(context.Background(), g.Arena, g.SourcesAndSinks)
			if err != nil {
				t.Fatalf("computation failed: %v", err)
			}
			if res.MaxFlow != test.flow {
				t.Errorf("expected flow %v, got %v", test.flow, res.MaxFlow)
			}
			if diff := cmp.Diff(test.cut, g.Describe(res.MinCut)); diff != "" {
				t.Errorf("unexpected cut: %s", diff)
			}
		})
	}
}

func TestUnboundedFlow(t *testing.T) {
	a := lattice.NewArena()
	h := a.New(lattice.U)
	a.SetWeight(h, lattice.Infinity)
	o := a.New(lattice.U, h)
	a.SetWeight(o, lattice.Infinity)
	s := NewSourcesAndSinks(lattice.NewBitSet(o), lattice.NewBitSet(h))
	cfg, logger := testConfig()
	for _, name := range []string{MaxSATGini, MaxFlowName} {
		alg, _ := New(name, cfg, logger)
		res, err := alg.Compute(context.Background(), a, s)
		if err != nil {
			t.Fatalf("%s: computation failed: %v", name, err)
		}
		if !lattice.IsInfinite(res.MaxFlow) {
			t.Errorf("%s: expected an infinite flow, got %v", name, res.MaxFlow)
		}
	}
}

func TestWideInterval(t *testing.T) {
	// 32 secret bits of a value known to be in [0, 4]
	a := lattice.NewArena()
	var hs []lattice.Bit
	for i := 0; i < 32; i++ {
		h := a.New(lattice.U)
		a.SetWeight(h, 1)
		hs = append(hs, h)
	}
	a.AddInterval(lattice.NewValue(hs...), lattice.Interval{Lo: 0, Hi: 4})
	o := a.New(lattice.U, hs...)
	a.SetWeight(o, lattice.Infinity)
	s := NewSourcesAndSinks(lattice.NewBitSet(o), lattice.NewBitSet(hs...))
	cfg, logger := testConfig()
	alg, err := New(MaxSATGini, cfg, logger)
	if err != nil {
		t.Fatalf("could not create algorithm: %v", err)
	}
	res, err := alg.Compute(context.Background(), a, s)
	if err != nil {
		t.Fatalf("computation failed: %v", err)
	}
	if math.Abs(res.MaxFlow-math.Log2(5)) > 1e-9 {
		t.Errorf("expected the entropy of the interval %v, got %v", math.Log2(5), res.MaxFlow)
	}
	if len(res.MinCut) != 0 {
		t.Errorf("only the interval should be cut, got %v", res.MinCut)
	}
}

func TestWeightOverrides(t *testing.T) {
	g := loadTestGraph(t, "single-sink.yaml")
	g.Weights[g.Bits["t"]] = 2
	alg := &MaxFlow{}
	res, err := alg.Compute(context.Background(), g.Arena, g.SourcesAndSinks)
	if err != nil {
		t.Fatalf("computation failed: %v", err)
	}
	if res.MaxFlow != 2 || !res.MinCut.Has(g.Bits["t"]) {
		t.Errorf("the overridden source weight should be cut, got %v %v", res.MaxFlow, g.Describe(res.MinCut))
	}
}

func TestEncoding(t *testing.T) {
	g := loadTestGraph(t, "infinite-domination.yaml")
	p := solver.NewProblem[Variable](32)
	enc, err := Encode(g.Arena, g.SourcesAndSinks, p)
	if err != nil {
		t.Fatalf("encoding failed: %v", err)
	}
	if len(enc.Bits) != 6 {
		t.Errorf("every visited bit should be weighted, got %v", g.Describe(lattice.NewBitSet(enc.Bits...)))
	}
	var sb strings.Builder
	if err := WriteWDIMACS(&sb, g.Arena, g.SourcesAndSinks, 32, true); err != nil {
		t.Fatalf("could not write instance: %v", err)
	}
	if !strings.HasPrefix(sb.String(), "p wcnf ") {
		t.Errorf("unexpected instance header: %s", strings.SplitN(sb.String(), "\n", 2)[0])
	}
}

type failingAlgorithm struct{ err error }

func (f failingAlgorithm) Name() string { return "failing" }

func (f failingAlgorithm) Compute(context.Context, *lattice.Arena, SourcesAndSinks) (ComputationResult, error) {
	return ComputationResult{}, f.err
}

func TestNoResultPolicy(t *testing.T) {
	_, logger := testConfig()
	m := metrics.New()
	b := &Bounder{Algorithm: failingAlgorithm{solver.ErrNoResult}, Policy: config.NoResultInfinite,
		Logger: logger, Metrics: m}
	res, err := b.Bound(context.Background(), lattice.NewArena(), SourcesAndSinks{})
	if err != nil {
		t.Fatalf("the infinite policy should not fail: %v", err)
	}
	if !lattice.IsInfinite(res.MaxFlow) || len(res.MinCut) != 0 {
		t.Errorf("expected an unbounded leakage with an empty cut, got %v", res)
	}

	b.Policy = config.NoResultAbort
	if _, err := b.Bound(context.Background(), lattice.NewArena(), SourcesAndSinks{}); !errors.Is(err,
		solver.ErrNoResult) {
		t.Errorf("the abort policy should return the solver error, got %v", err)
	}

	b.Policy = config.NoResultInfinite
	b.Algorithm = failingAlgorithm{errors.New("broken")}
	if _, err := b.Bound(context.Background(), lattice.NewArena(), SourcesAndSinks{}); err == nil {
		t.Errorf("other errors are never converted")
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "qif_solver_calls_total"); err != nil || n != 2 {
		t.Errorf("expected two outcome series, got %d (%v)", n, err)
	}
}

func TestNew(t *testing.T) {
	cfg, logger := testConfig()
	cfg.SolverBinaries["uwrmaxsat"] = "/opt/uwrmaxsat"
	for _, name := range Names() {
		alg, err := New(name, cfg, logger)
		if err != nil {
			t.Errorf("could not create %s: %v", name, err)
			continue
		}
		if alg.Name() != name {
			t.Errorf("algorithm %s reports the name %s", name, alg.Name())
		}
	}
	_, err := New("glpk", cfg, logger)
	if err == nil || !strings.Contains(err.Error(), "maxsat-gini, maxflow") {
		t.Errorf("unknown algorithms should be rejected with the list of algorithms, got %v", err)
	}
}

func TestLoadGraphErrors(t *testing.T) {
	for _, content := range []string{
		"bits: [{id: a, deps: [b]}]\nsources: [a]\n",
		"bits: [{id: a}, {id: a}]\n",
		"bits: [{id: a, val: \"0\", deps: [a]}]\n",
		"bits: [{id: a, val: q}]\n",
		"bits: [{id: a}]\nsinks: [z]\n",
		"bits: [{id: a, interval: i}]\n",
	} {
		if _, err := LoadGraph(bytes.NewBufferString(content)); err == nil {
			t.Errorf("graph should be rejected:\n%s", content)
		}
	}
}
