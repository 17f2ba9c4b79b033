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

// Package handlers contains the method invocation handlers: the strategies used to compute the effect of a call
// site on the bits of the caller. The basic handler over-approximates every call, the inlining handler analyzes the
// body of the callee again for every call, and the summary handler computes a summary of every method once with a
// fixpoint iteration over the call graph.
//
// Handlers are configured with strings like "handler=inlining;maxrec=2;bot={handler=summary;bot=basic}", see
// ParseSpec.
package handlers

import (
	"github.com/awslabs/ar-qif-tools/analysis/bitgraph"
	"github.com/awslabs/ar-qif-tools/analysis/lang"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
)

// A Handler computes the effect of call sites. Analyze does not modify args or globals: the result has its own
// globals map.
type Handler interface {
	// Setup prepares the handler for the analysis of program p
	Setup(ctx *Context, p *lang.Program) error

	// Analyze returns the return values of the call, the globals after the call and the input bits the call
	// introduces
	Analyze(ctx *Context, site *lang.CallSite, args []lattice.Value,
		globals map[string]lattice.AppendOnlyValue) (*MethodReturnValue, error)
}

// New parses the specification of a handler and builds it
func New(spec string) (Handler, error) {
	s, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	return Build(s)
}

// *************** basic handler **********************

// Basic is the handler that does not look at the callee: every return bit and every bit appended to a global
// depends on every argument bit and on the inputs declared by the callee and the methods it calls. The globals of
// the caller and the globals declared by these methods are extended. It is sound and always terminates.
type Basic struct{}

// Setup does nothing
func (Basic) Setup(*Context, *lang.Program) error {
	return nil
}

// Analyze returns unknown return values and appends star bits to the globals
func (Basic) Analyze(ctx *Context, site *lang.CallSite, args []lattice.Value,
	globals map[string]lattice.AppendOnlyValue) (*MethodReturnValue, error) {
	a := ctx.Arena()
	m := site.Callee
	inputs := m.AllInputs()
	if len(args) == 0 && len(inputs) == 0 {
		res := bitgraph.NewMethodReturnValue(botValues(ctx, m))
		for k, v := range globals {
			res.Globals[k] = v
		}
		return res, nil
	}
	var inputVal lattice.Value
	for _, decl := range inputs {
		width := decl.Width
		if width <= 0 {
			width = ctx.Width()
		}
		v := a.Unknown(width)
		for _, b := range v.Bits {
			a.SetWeight(b, lattice.Infinity)
		}
		ctx.registerInput(v, decl.Sec)
		inputVal.Bits = append(inputVal.Bits, v.Bits...)
	}
	deps := append(lattice.Combine(args...).Bits, inputVal.Bits...)
	starWidth := funcutil.MaxOf(args, lattice.Value.Width, 0)

	var values []lattice.Value
	for i := 0; i < m.NumReturns; i++ {
		v := a.Unknown(ctx.Width(), deps...)
		v.Tag = m.Name
		values = append(values, v)
	}
	res := bitgraph.NewMethodReturnValue(values)
	for k, v := range globals {
		res.Globals[k] = v
	}
	for _, k := range m.AllGlobals() {
		if _, ok := res.Globals[k]; !ok {
			res.Globals[k] = lattice.AppendOnlyValue{}
		}
	}
	for _, k := range funcutil.SortedKeys(res.Globals) {
		stars := make([]lattice.Bit, starWidth)
		for i := range stars {
			stars[i] = a.New(lattice.S, deps...)
		}
		res.Globals[k] = res.Globals[k].Append(lattice.NewValue(stars...), inputVal)
	}
	if len(inputVal.Bits) > 0 {
		if _, ok := res.Globals[lang.InputGlobal]; !ok {
			res.Globals[lang.InputGlobal] = lattice.AppendOnlyValue{}.Append(inputVal)
		}
	}
	res.NewInputBits.Add(inputVal.Bits...)
	return res, nil
}

func botValues(ctx *Context, m *lang.Method) []lattice.Value {
	values := make([]lattice.Value, m.NumReturns)
	for i := range values {
		values[i] = ctx.Arena().Bot(ctx.Width())
	}
	return values
}

// *************** inlining handler **********************

// Inlining analyzes the body of the callee at every call site. A method is inlined at most MaxRec times on the
// active call path, deeper calls are passed to Bot.
type Inlining struct {
	MaxRec int
	Bot    Handler

	counter map[*lang.Method]int
}

// NewInlining returns an inlining handler
func NewInlining(maxRec int, bot Handler) *Inlining {
	return &Inlining{MaxRec: maxRec, Bot: bot, counter: map[*lang.Method]int{}}
}

// Setup sets up the fallback handler
func (h *Inlining) Setup(ctx *Context, p *lang.Program) error {
	return h.Bot.Setup(ctx, p)
}

// Analyze executes the callee's body with the arguments as parameters
func (h *Inlining) Analyze(ctx *Context, site *lang.CallSite, args []lattice.Value,
	globals map[string]lattice.AppendOnlyValue) (*MethodReturnValue, error) {
	m := site.Callee
	if h.counter == nil {
		h.counter = map[*lang.Method]int{}
	}
	if h.counter[m] >= h.MaxRec {
		return h.Bot.Analyze(ctx, site, args, globals)
	}
	h.counter[m]++
	defer func() { h.counter[m]-- }()
	ctx.Logger.Tracef("inlining %s (depth %d)", site, h.counter[m])
	return ctx.Execute(m, site, args, globals)
}
