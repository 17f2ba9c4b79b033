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
	"fmt"
	"os"
	"path/filepath"

	"github.com/awslabs/ar-qif-tools/analysis/bitgraph"
	"github.com/awslabs/ar-qif-tools/analysis/callgraph"
	"github.com/awslabs/ar-qif-tools/analysis/lang"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
)

// Summary is the handler that applies method summaries. The summaries are computed by Setup with a fixpoint
// iteration over the call graph: every method is analyzed with the current summaries of its callees, the graph
// of its bits is reduced to a summary, and the callers of methods whose summary changed are analyzed again.
type Summary struct {
	Config SummaryConfig
	Bot    Handler

	graphs map[*lang.Method]*bitgraph.BitGraph
	visits int
}

// summaryState is the state of a method during the fixpoint iteration
type summaryState struct {
	params      []lattice.Value
	graph       *bitgraph.BitGraph
	fingerprint uint64
	history     map[string]*globalHistory
	// seen maps the fingerprints of the earlier summaries to the visit that produced them first
	seen map[uint64]int
}

// observe records the fingerprint of the summary produced by visit. It returns the visit that first produced the
// same fingerprint if the summary changed back to an earlier one.
func (st *summaryState) observe(fp uint64, visit int, changed bool) (int, bool) {
	if st.seen == nil {
		st.seen = map[uint64]int{}
	}
	first, ok := st.seen[fp]
	if !ok {
		st.seen[fp] = visit
	}
	return first, ok && changed
}

// NewSummary returns a summary handler. Setup must be called before the handler is used.
func NewSummary(cfg SummaryConfig, bot Handler) *Summary {
	return &Summary{Config: cfg, Bot: bot}
}

// Visits returns the number of method analyses done by the last Setup
func (h *Summary) Visits() int {
	return h.visits
}

// Graph returns the summary of m
func (h *Summary) Graph(m *lang.Method) (*bitgraph.BitGraph, bool) {
	g, ok := h.graphs[m]
	return g, ok
}

// Setup computes the summaries of all methods of p except main
func (h *Summary) Setup(ctx *Context, p *lang.Program) error {
	if err := h.Bot.Setup(ctx, p); err != nil {
		return err
	}
	ctx.Logger.Debugf("Setup summary handler %s", h.Config)
	cg := callgraph.Build(p)
	mode := h.Config.Mode
	if mode == Auto {
		mode = Induction
		if cg.ContainsRecursion() {
			ctx.Logger.Warnf("summary handler uses induction on a recursive program, the summaries may be unsound")
		}
	}
	if mode != Coinduction && h.Config.MaxIter > 0 {
		ctx.Logger.Warnf("maxiter=%d is ignored in mode %s", h.Config.MaxIter, mode)
	}

	states := map[*lang.Method]*summaryState{}
	var handler Handler = summaryLookup(func(m *lang.Method) (*bitgraph.BitGraph, bool) {
		st, ok := states[m]
		if !ok {
			return nil, false
		}
		return st.graph, true
	})
	if h.Config.CallStringMaxRec > 0 {
		handler = NewInlining(h.Config.CallStringMaxRec, handler)
	}

	worklist := callgraph.NewCallNodeWorklist()
	for _, n := range cg.PostOrder() {
		if n.IsMain() {
			continue
		}
		st, err := h.bot(ctx, n.Method, mode)
		if err != nil {
			return err
		}
		states[n.Method] = st
		h.writeDot(ctx, fmt.Sprintf("%03d-%s", 0, n.Method.Name), st.graph)
		worklist.Push(n)
	}

	h.visits = 0
	for worklist.Len() > 0 {
		if err := ctx.Ctx().Err(); err != nil {
			return err
		}
		if mode == Coinduction && h.Config.MaxIter > 0 && h.visits >= h.Config.MaxIter {
			ctx.Logger.Warnf("summary handler stopped after %d iterations with %d methods left, "+
				"the last summaries are used", h.visits, worklist.Len())
			break
		}
		n, _ := worklist.Pop()
		h.visits++
		changed, err := h.visit(ctx, n.Method, states[n.Method], handler)
		if err != nil {
			return fmt.Errorf("summary of %s: %w", n.Method.Name, err)
		}
		ctx.Metrics.SummaryVisit(changed)
		if !changed {
			continue
		}
		for _, caller := range n.Callers {
			if !caller.IsMain() {
				worklist.Push(caller)
			}
		}
	}

	h.graphs = make(map[*lang.Method]*bitgraph.BitGraph, len(states))
	for m, st := range states {
		h.graphs[m] = st.graph
	}
	ctx.Logger.Debugf("Finished summary setup after %d iterations", h.visits)
	return nil
}

// bot returns the initial state of m
func (h *Summary) bot(ctx *Context, m *lang.Method, mode Mode) (*summaryState, error) {
	a := ctx.Arena()
	params := make([]lattice.Value, m.NumParams)
	for i := range params {
		params[i] = a.Unknown(ctx.Width())
		params[i].Tag = fmt.Sprintf("%s.p%d", m.Name, i)
	}
	var ret *MethodReturnValue
	if mode == Coinduction {
		site := &lang.CallSite{ID: -1, Caller: m, Callee: m}
		err := ctx.withHandler(h.Bot, func() error {
			var err error
			ret, err = h.Bot.Analyze(ctx, site, params, map[string]lattice.AppendOnlyValue{})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("initial summary of %s: %w", m.Name, err)
		}
	} else {
		values := make([]lattice.Value, m.NumReturns)
		for i := range values {
			values[i] = a.Unknown(ctx.Width())
		}
		ret = bitgraph.NewMethodReturnValue(values)
	}
	g := bitgraph.New(a, params, ret, ret.NewInputBits)
	st := &summaryState{params: params, graph: g, fingerprint: g.Fingerprint()}
	st.observe(st.fingerprint, 0, false)
	return st, nil
}

// visit analyzes m with the current summaries and returns true if its summary changed
func (h *Summary) visit(ctx *Context, m *lang.Method, st *summaryState, handler Handler) (bool, error) {
	ctx.Logger.Debugf("Setup: analyse %s (iteration %d)", m.Name, h.visits)
	var ret *MethodReturnValue
	err := ctx.withHandler(handler, func() error {
		var err error
		ret, err = ctx.Execute(m, nil, st.params, map[string]lattice.AppendOnlyValue{})
		return err
	})
	if err != nil {
		return false, err
	}
	graph := bitgraph.New(ctx.Arena(), st.params, ret, ret.NewInputBits)
	name := fmt.Sprintf("%03d-%s", h.visits, m.Name)
	h.writeDot(ctx, name, graph)

	reduced, err := h.reduce(ctx, graph)
	if err != nil {
		return false, err
	}
	reduced, addedStar := reduceGlobals(ctx.Arena(), reduced, st)
	h.writeDot(ctx, name+"-reduced", reduced)

	// equal fingerprints are confirmed by the full comparison
	fp := reduced.Fingerprint()
	changed := addedStar || fp != st.fingerprint || !bitgraph.EqualReturnValues(st.graph, reduced)
	first, again := st.observe(fp, h.visits, changed && fp != st.fingerprint)
	if again && h.Config.Mode == Coinduction {
		ctx.Logger.Warnf("summary of %s is back to the summary of visit %d, the iteration might not converge",
			m.Name, first)
	}
	st.graph = reduced
	st.fingerprint = fp
	ctx.Logger.Tracef("summary of %s: %s (changed: %t)", m.Name, reduced, changed)
	return changed, nil
}

// writeDot writes g to the dot directory of the handler, or of the configuration if the handler has none
func (h *Summary) writeDot(ctx *Context, name string, g *bitgraph.BitGraph) {
	dir := h.Config.Dot
	if dir == "" && ctx.Config != nil {
		dir = ctx.Config.DotDir
	}
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		ctx.Logger.Warnf("could not create dot directory: %v", err)
		return
	}
	f, err := os.Create(filepath.Join(dir, name+".dot"))
	if err != nil {
		ctx.Logger.Warnf("could not write summary graph: %v", err)
		return
	}
	defer f.Close()
	if err := g.Dot(f, name); err != nil {
		ctx.Logger.Warnf("could not write summary graph: %v", err)
	}
}

// Analyze applies the summary of the callee to the arguments
func (h *Summary) Analyze(ctx *Context, site *lang.CallSite, args []lattice.Value,
	globals map[string]lattice.AppendOnlyValue) (*MethodReturnValue, error) {
	g, ok := h.graphs[site.Callee]
	if !ok {
		return nil, fmt.Errorf("no summary for %s", site.Callee.Name)
	}
	return g.ApplyToArgs(ctx.Arena(), args, globals), nil
}

// summaryLookup applies the summaries of the current fixpoint iteration
type summaryLookup func(m *lang.Method) (*bitgraph.BitGraph, bool)

func (summaryLookup) Setup(*Context, *lang.Program) error {
	return nil
}

func (f summaryLookup) Analyze(ctx *Context, site *lang.CallSite, args []lattice.Value,
	globals map[string]lattice.AppendOnlyValue) (*MethodReturnValue, error) {
	g, ok := f(site.Callee)
	if !ok {
		return nil, fmt.Errorf("no summary for %s", site.Callee.Name)
	}
	return g.ApplyToArgs(ctx.Arena(), args, globals), nil
}
