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

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/awslabs/ar-qif-tools/analysis/bitgraph"
	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/awslabs/ar-qif-tools/analysis/lang"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/leakage"
)

const width = 4

func newTestContext(p *lang.Program) *Context {
	cfg := config.NewDefault()
	cfg.BitWidth = width
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return NewContext(context.Background(), p, cfg, logger, nil, nil)
}

// run sets up the handler of spec and executes main
func run(t *testing.T, p *lang.Program, spec string) (*Context, Handler, *MethodReturnValue) {
	t.Helper()
	h, err := New(spec)
	if err != nil {
		t.Fatalf("could not create handler %s: %v", spec, err)
	}
	ctx := newTestContext(p)
	ctx.SetHandler(h)
	if err := h.Setup(ctx, p); err != nil {
		t.Fatalf("setup of %s failed: %v", spec, err)
	}
	res, err := ctx.Execute(p.Main, nil, nil, map[string]lattice.AppendOnlyValue{})
	if err != nil {
		t.Fatalf("analysis with %s failed: %v", spec, err)
	}
	return ctx, h, res
}

// leak returns the bound on the flow from the high inputs to the low outputs of main
func leak(t *testing.T, ctx *Context, res *MethodReturnValue) float64 {
	t.Helper()
	out := lattice.NewBitSet(res.Globals[lang.OutputGlobal(lattice.Low)].Bits...)
	in := lattice.BitSet{}
	for b := range res.NewInputBits {
		if sec, ok := ctx.Arena().InputLevel(b); ok && sec == lattice.High {
			in.Add(b)
		}
	}
	r, err := (&leakage.MaxFlow{}).Compute(context.Background(), ctx.Arena(), leakage.NewSourcesAndSinks(out, in))
	if err != nil {
		t.Fatalf("could not compute leakage: %v", err)
	}
	return r.MaxFlow
}

// callProgram returns a program whose main reads a high input, passes it to a method with the given body and
// outputs the result
func callProgram(t *testing.T, body lang.Body) *lang.Program {
	t.Helper()
	p := lang.NewProgram()
	m, err := p.NewMethod("m", 1, 1, body)
	if err != nil {
		t.Fatalf("could not create method: %v", err)
	}
	site := p.Main.CallTo(m)
	p.SetMain(func(env lang.Env) error {
		h := env.Input(lattice.High)
		r, err := env.Call(site, h)
		if err != nil {
			return err
		}
		env.Output(lattice.Low, r[0])
		return nil
	})
	return p
}

func identity(env lang.Env) error {
	env.Return(env.Param(0))
	return nil
}

func mask(env lang.Env) error {
	env.Return(env.Arena().And(env.Param(0), env.Arena().Const(3, env.Width())))
	return nil
}

var allSpecs = []string{
	"handler=inlining",
	"handler=summary",
	"handler=summary;reduction=basic",
	"handler=summary;mode=coind",
	"handler=summary;mode=ind;csmaxrec=1",
	"handler=inlining;maxrec=1;bot={handler=summary;bot=basic}",
}

func TestLeakageThroughCalls(t *testing.T) {
	tests := []struct {
		name  string
		body  lang.Body
		basic float64
		other float64
	}{
		{"identity", identity, 4, 4},
		{"mask", mask, 4, 2},
	}
	for _, test := range tests {
		t.Run(test.name+"/basic", func(t *testing.T) {
			ctx, _, res := run(t, callProgram(t, test.body), "basic")
			if got := leak(t, ctx, res); got != test.basic {
				t.Errorf("expected leakage %v, got %v", test.basic, got)
			}
		})
		for _, spec := range allSpecs {
			t.Run(test.name+"/"+spec, func(t *testing.T) {
				ctx, _, res := run(t, callProgram(t, test.body), spec)
				if got := leak(t, ctx, res); got != test.other {
					t.Errorf("expected leakage %v, got %v", test.other, got)
				}
			})
		}
	}
}

func TestBasicHandler(t *testing.T) {
	p := lang.NewProgram()
	f, _ := p.NewMethod("f", 2, 1, identity)
	f.ReadsInput(lattice.High, 0)
	site := p.Main.CallTo(f)
	ctx := newTestContext(p)
	a := ctx.Arena()

	x, y := a.Unknown(width), a.Unknown(2)
	out := lattice.AppendOnlyValue{}.Append(a.Unknown(2))
	globals := map[string]lattice.AppendOnlyValue{lang.OutputGlobal(lattice.Low): out}
	res, err := Basic{}.Analyze(ctx, site, []lattice.Value{x, y}, globals)
	if err != nil {
		t.Fatalf("basic handler failed: %v", err)
	}
	if len(globals) != 1 || globals[lang.OutputGlobal(lattice.Low)].Len() != 2 {
		t.Errorf("the globals of the caller were modified")
	}
	if res.NewInputBits.Len() != width {
		t.Fatalf("expected %d input bits, got %d", width, res.NewInputBits.Len())
	}
	for b := range res.NewInputBits {
		if sec, ok := a.InputLevel(b); !ok || sec != lattice.High || !lattice.IsInfinite(a.Weight(b)) {
			t.Errorf("%s should be a high input with infinite weight", b)
		}
	}
	deps := lattice.Union(x.BitSet(), y.BitSet(), res.NewInputBits)
	if len(res.Values) != 1 || res.Values[0].Width() != width {
		t.Fatalf("expected one return value of width %d", width)
	}
	for _, b := range res.Values[0].Bits {
		if a.Val(b) != lattice.U || !lattice.NewBitSet(a.Deps(b)...).Equal(deps) {
			t.Errorf("return bit %s should be unknown and depend on all arguments and inputs", a.String(b))
		}
	}
	got := res.Globals[lang.OutputGlobal(lattice.Low)]
	if got.Len() != 2+width+width {
		t.Fatalf("expected the global to grow by %d star bits and the inputs, got %d bits", width, got.Len())
	}
	for _, b := range got.Bits[2 : 2+width] {
		if a.Val(b) != lattice.S {
			t.Errorf("expected a star bit, got %s", a.String(b))
		}
	}
	if res.Globals[lang.InputGlobal].Len() != width {
		t.Errorf("the inputs should be appended to the input global")
	}

	g, _ := p.NewMethod("g", 0, 1, identity)
	res, err = Basic{}.Analyze(ctx, p.Main.CallTo(g), nil, globals)
	if err != nil {
		t.Fatalf("basic handler failed: %v", err)
	}
	if a.Val(res.Values[0].At(0)) != lattice.X || res.Globals[lang.OutputGlobal(lattice.Low)].Len() != 2 {
		t.Errorf("a call without arguments and inputs has no effect")
	}
}

func TestBasicHandlerWritesDeclaredGlobals(t *testing.T) {
	build := func() *lang.Program {
		p := lang.NewProgram()
		f, _ := p.NewMethod("f", 1, 0, func(env lang.Env) error {
			env.Output(lattice.Low, env.Param(0))
			return nil
		})
		f.WritesOutput(lattice.Low)
		site := p.Main.CallTo(f)
		p.SetMain(func(env lang.Env) error {
			_, err := env.Call(site, env.Input(lattice.High))
			return err
		})
		return p
	}
	for _, spec := range []string{"basic", "handler=inlining;maxrec=0;bot=basic", "handler=inlining"} {
		t.Run(spec, func(t *testing.T) {
			ctx, _, res := run(t, build(), spec)
			if got := leak(t, ctx, res); got != width {
				t.Errorf("expected leakage %d, got %v", width, got)
			}
		})
	}
}

func TestBasicHandlerCalleeInputs(t *testing.T) {
	p := lang.NewProgram()
	g, _ := p.NewMethod("g", 0, 0, func(env lang.Env) error {
		env.Output(lattice.Low, env.Input(lattice.High))
		return nil
	})
	g.ReadsInput(lattice.High, 0).WritesOutput(lattice.Low)
	f, _ := p.NewMethod("f", 0, 0, nil)
	inner := f.CallTo(g)
	f.Body = func(env lang.Env) error {
		_, err := env.Call(inner)
		return err
	}
	site := p.Main.CallTo(f)
	ctx := newTestContext(p)
	res, err := Basic{}.Analyze(ctx, site, nil, map[string]lattice.AppendOnlyValue{})
	if err != nil {
		t.Fatalf("basic handler failed: %v", err)
	}
	if res.NewInputBits.Len() != width {
		t.Errorf("the inputs of g should be introduced by the call to f, got %d bits", res.NewInputBits.Len())
	}
	out := res.Globals[lang.OutputGlobal(lattice.Low)]
	if out.Len() != width {
		t.Fatalf("the output written by g should hold the input bits, got %d bits", out.Len())
	}
	for _, b := range out.Bits {
		if !res.NewInputBits.Has(b) {
			t.Errorf("unexpected output bit %s", ctx.Arena().String(b))
		}
	}
}

// countingHandler counts the calls that reach it
type countingHandler struct {
	Basic
	calls int
}

func (h *countingHandler) Analyze(ctx *Context, site *lang.CallSite, args []lattice.Value,
	globals map[string]lattice.AppendOnlyValue) (*MethodReturnValue, error) {
	h.calls++
	return h.Basic.Analyze(ctx, site, args, globals)
}

func TestInliningDepth(t *testing.T) {
	p := lang.NewProgram()
	f, _ := p.NewMethod("f", 1, 1, nil)
	self := f.CallTo(f)
	failing := false
	f.Body = func(env lang.Env) error {
		if failing {
			return fmt.Errorf("boom")
		}
		r, err := env.Call(self, env.Param(0))
		if err != nil {
			return err
		}
		env.Return(r[0])
		return nil
	}
	site := p.Main.CallTo(f)
	p.SetMain(func(env lang.Env) error {
		_, err := env.Call(site, env.Input(lattice.High))
		return err
	})

	bot := &countingHandler{}
	h := NewInlining(2, bot)
	ctx := newTestContext(p)
	ctx.SetHandler(h)
	if _, err := ctx.Execute(p.Main, nil, nil, nil); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if bot.calls != 1 {
		t.Errorf("the third nested call of f should use the fallback, got %d fallback calls", bot.calls)
	}
	if h.counter[f] != 0 {
		t.Errorf("the call counter should be reset, got %d", h.counter[f])
	}

	failing = true
	if _, err := ctx.Execute(p.Main, nil, nil, nil); err == nil {
		t.Fatalf("expected the failure of f")
	}
	if h.counter[f] != 0 {
		t.Errorf("the call counter should be reset after a failure, got %d", h.counter[f])
	}
}

func TestInliningZeroValue(t *testing.T) {
	p := callProgram(t, identity)
	h := &Inlining{MaxRec: 2, Bot: Basic{}}
	ctx := newTestContext(p)
	ctx.SetHandler(h)
	res, err := ctx.Execute(p.Main, nil, nil, map[string]lattice.AppendOnlyValue{})
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if got := leak(t, ctx, res); got != width {
		t.Errorf("expected leakage %d, got %v", width, got)
	}
	if c := h.counter; len(c) != 1 {
		t.Errorf("expected the counter of the callee, got %v", c)
	}
}

func TestUnknownCallSite(t *testing.T) {
	p := lang.NewProgram()
	f, _ := p.NewMethod("f", 0, 0, func(lang.Env) error { return nil })
	g, _ := p.NewMethod("g", 0, 0, func(lang.Env) error { return nil })
	foreign := g.CallTo(f)
	p.SetMain(func(env lang.Env) error {
		_, err := env.Call(foreign)
		return err
	})
	ctx := newTestContext(p)
	ctx.SetHandler(Basic{})
	_, err := ctx.Execute(p.Main, nil, nil, nil)
	if !errors.Is(err, lang.ErrUnknownSite) {
		t.Errorf("expected an unknown site error, got %v", err)
	}
}

// chainProgram returns a program main -> a -> b -> c where every method passes its parameter through
func chainProgram(t *testing.T) *lang.Program {
	t.Helper()
	p := lang.NewProgram()
	c, _ := p.NewMethod("c", 1, 1, identity)
	b, _ := p.NewMethod("b", 1, 1, nil)
	a, _ := p.NewMethod("a", 1, 1, nil)
	forward := func(m *lang.Method, callee *lang.Method) {
		site := m.CallTo(callee)
		m.Body = func(env lang.Env) error {
			r, err := env.Call(site, env.Param(0))
			if err != nil {
				return err
			}
			env.Return(r[0])
			return nil
		}
	}
	forward(b, c)
	forward(a, b)
	site := p.Main.CallTo(a)
	p.SetMain(func(env lang.Env) error {
		r, err := env.Call(site, env.Input(lattice.High))
		if err != nil {
			return err
		}
		env.Output(lattice.Low, r[0])
		return nil
	})
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
	return p
}

func TestInductionTerminates(t *testing.T) {
	p := chainProgram(t)
	ctx, h, res := run(t, p, "handler=summary;mode=ind")
	s := h.(*Summary)
	if s.Visits() != 3 {
		t.Errorf("every method of the chain should be analyzed once, got %d visits", s.Visits())
	}
	a, _ := p.Lookup("a")
	g, ok := s.Graph(a)
	if !ok {
		t.Fatalf("no summary for a")
	}
	for i, b := range g.Result.Values[0].Bits {
		deps := g.CalcReachableParamBits(b)
		if deps.Len() != 1 || !deps.Has(g.Parameters[0].At(i)) {
			t.Errorf("return bit %d of a should only depend on parameter bit %d", i, i)
		}
	}
	if got := leak(t, ctx, res); got != width {
		t.Errorf("expected leakage %d, got %v", width, got)
	}
}

func TestCoinductionMaxIter(t *testing.T) {
	p := chainProgram(t)
	ctx, h, res := run(t, p, "handler=summary;mode=coind;maxiter=1")
	s := h.(*Summary)
	if s.Visits() != 1 {
		t.Errorf("expected a single visit, got %d", s.Visits())
	}
	for _, name := range []string{"a", "b", "c"} {
		m, _ := p.Lookup(name)
		if _, ok := s.Graph(m); !ok {
			t.Errorf("no summary for %s", name)
		}
	}
	if got := leak(t, ctx, res); got != width {
		t.Errorf("expected leakage %d, got %v", width, got)
	}
}

func TestRecursiveCoinduction(t *testing.T) {
	p := lang.NewProgram()
	f, _ := p.NewMethod("f", 1, 1, nil)
	self := f.CallTo(f)
	f.Body = func(env lang.Env) error {
		r, err := env.Call(self, env.Param(0))
		if err != nil {
			return err
		}
		env.Return(env.Arena().Join(env.Param(0), r[0]))
		return nil
	}
	site := p.Main.CallTo(f)
	p.SetMain(func(env lang.Env) error {
		r, err := env.Call(site, env.Input(lattice.High))
		if err != nil {
			return err
		}
		env.Output(lattice.Low, r[0])
		return nil
	})
	ctx, h, res := run(t, p, "handler=summary;mode=coind;bot=basic")
	if visits := h.(*Summary).Visits(); visits != 1 {
		t.Errorf("the basic summary of f is a fixpoint, got %d visits", visits)
	}
	if got := leak(t, ctx, res); got != width {
		t.Errorf("expected leakage %d, got %v", width, got)
	}
}

func TestRecursiveOutputGetsStarBit(t *testing.T) {
	p := lang.NewProgram()
	f, _ := p.NewMethod("f", 1, 0, nil)
	self := f.CallTo(f)
	f.Body = func(env lang.Env) error {
		env.Output(lattice.Low, env.Param(0))
		_, err := env.Call(self, env.Param(0))
		return err
	}
	site := p.Main.CallTo(f)
	p.SetMain(func(env lang.Env) error {
		_, err := env.Call(site, env.Input(lattice.High))
		return err
	})
	ctx, h, res := run(t, p, "handler=summary;mode=ind")
	s := h.(*Summary)
	if s.Visits() > 10 {
		t.Errorf("the fixpoint should converge quickly, got %d visits", s.Visits())
	}
	g, _ := s.Graph(f)
	star := false
	for _, b := range g.Result.Globals[lang.OutputGlobal(lattice.Low)].Bits {
		star = star || ctx.Arena().Val(b) == lattice.S
	}
	if !star {
		t.Errorf("the output of f should be closed by a star bit")
	}
	if got := leak(t, ctx, res); got != width {
		t.Errorf("expected leakage %d, got %v", width, got)
	}
}

func TestSummaryStateDetectsRepetition(t *testing.T) {
	st := &summaryState{}
	if _, again := st.observe(1, 0, false); again {
		t.Errorf("the initial summary is not a repetition")
	}
	if _, again := st.observe(2, 1, true); again {
		t.Errorf("a new summary is not a repetition")
	}
	if _, again := st.observe(2, 2, false); again {
		t.Errorf("an unchanged summary is not a repetition")
	}
	first, again := st.observe(1, 3, true)
	if !again || first != 0 {
		t.Errorf("expected a repetition of visit 0, got %d %t", first, again)
	}
	if first, _ := st.observe(2, 4, true); first != 1 {
		t.Errorf("expected the first visit of the summary, got %d", first)
	}
}

func TestMinCutReductionIsTighter(t *testing.T) {
	ctx := newTestContext(lang.NewProgram())
	a := ctx.Arena()
	param := a.Unknown(width)
	middle := a.New(lattice.U, param.Bits...)
	ret := a.Unknown(width, middle)
	ret.Tag = "ret"
	g := bitgraph.New(a, []lattice.Value{param}, bitgraph.NewMethodReturnValue([]lattice.Value{ret}), nil)

	weight := func(r *bitgraph.BitGraph) float64 {
		_, w, err := r.MinCutBits(context.Background(), &leakage.MaxFlow{}, r.Result.Values[0].BitSet(),
			r.ParameterBits, lattice.Infinity)
		if err != nil {
			t.Fatalf("min cut failed: %v", err)
		}
		return w
	}
	basic := BasicReduce(a, g)
	minCut, err := MinCutReduce(ctx, g)
	if err != nil {
		t.Fatalf("min cut reduction failed: %v", err)
	}
	if wb, wm := weight(basic), weight(minCut); wm > wb || wm != 1 || wb != width {
		t.Errorf("expected weights 1 (mincut) <= %d (basic), got %v and %v", width, wm, wb)
	}
	if !bitgraph.EqualReturnValues(basic, minCut) {
		t.Errorf("both reductions keep the parameter dependencies")
	}
	if minCut.Result.Values[0].Tag != "ret" || minCut.Result.Values[0].At(0) == ret.At(0) {
		t.Errorf("the reduction clones the return bits and keeps the tag of the return value")
	}
}

func TestDotOutput(t *testing.T) {
	dir := t.TempDir()
	run(t, callProgram(t, identity), "handler=summary;dot="+dir)
	for _, name := range []string{"000-m.dot", "001-m.dot", "001-m-reduced.dot"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}
