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
	"fmt"

	"github.com/awslabs/ar-qif-tools/analysis/bitgraph"
	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/awslabs/ar-qif-tools/analysis/lang"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/leakage"
	"github.com/awslabs/ar-qif-tools/internal/metrics"
)

// MethodReturnValue is the result of a method invocation
type MethodReturnValue = bitgraph.MethodReturnValue

// frame is the state of a method being executed
type frame struct {
	method   *lang.Method
	site     *lang.CallSite
	params   []lattice.Value
	globals  map[string]lattice.AppendOnlyValue
	returns  []lattice.Value
	returned bool
	inputs   lattice.BitSet
}

// Context is the state of an analysis: the arena of bits, the stack of methods being executed and the handler
// that evaluates call sites. It implements lang.Env for the method on top of the stack.
//
// A Context is not safe for concurrent use.
type Context struct {
	Program *lang.Program
	Config  *config.Config
	Logger  *config.LogGroup
	Metrics *metrics.Metrics
	// Leakage computes the min cuts needed by the summary reductions
	Leakage leakage.Algorithm

	ctx     context.Context
	arena   *lattice.Arena
	width   int
	frames  []*frame
	handler Handler
	inputs  []lattice.Bit
}

// NewContext returns a context with an empty arena. ctx is checked for cancellation at every call site. A nil
// logger is replaced by a logger configured by cfg, a nil algorithm by the max-flow algorithm.
func NewContext(ctx context.Context, program *lang.Program, cfg *config.Config, logger *config.LogGroup,
	m *metrics.Metrics, alg leakage.Algorithm) *Context {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	if alg == nil {
		alg = &leakage.MaxFlow{}
	}
	return &Context{
		Program: program,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Leakage: alg,
		ctx:     ctx,
		arena:   lattice.NewArena(),
		width:   cfg.BitWidth,
	}
}

// Ctx returns the context.Context of the analysis
func (c *Context) Ctx() context.Context {
	return c.ctx
}

// Handler returns the handler call sites are evaluated with
func (c *Context) Handler() Handler {
	return c.handler
}

// SetHandler sets the handler call sites are evaluated with
func (c *Context) SetHandler(h Handler) {
	c.handler = h
}

// withHandler runs f with h as the current handler and restores the previous handler afterwards
func (c *Context) withHandler(h Handler, f func() error) error {
	prev := c.handler
	c.handler = h
	defer func() { c.handler = prev }()
	return f()
}

// Inputs returns every input bit created during the analysis, in creation order
func (c *Context) Inputs() []lattice.Bit {
	return c.inputs
}

// registerInput marks the bits of v as inputs with level sec
func (c *Context) registerInput(v lattice.Value, sec lattice.Sec) {
	for _, b := range v.Bits {
		c.arena.MarkInput(b, sec)
		c.inputs = append(c.inputs, b)
	}
}

func (c *Context) top() *frame {
	if len(c.frames) == 0 {
		panic(fmt.Errorf("no method is being executed"))
	}
	return c.frames[len(c.frames)-1]
}

// Execute runs the body of m with the parameters bound to params and the globals set to globals. Missing
// parameters are unknown. It returns the return values, the globals after the execution and the input bits read
// during the execution. The caller's globals are not modified.
func (c *Context) Execute(m *lang.Method, site *lang.CallSite, params []lattice.Value,
	globals map[string]lattice.AppendOnlyValue) (*MethodReturnValue, error) {
	if m.Body == nil {
		return nil, fmt.Errorf("method %s has no body", m.Name)
	}
	f := &frame{
		method:  m,
		site:    site,
		params:  make([]lattice.Value, m.NumParams),
		globals: make(map[string]lattice.AppendOnlyValue, len(globals)),
		inputs:  lattice.BitSet{},
	}
	for i := range f.params {
		if i < len(params) {
			f.params[i] = params[i]
		} else {
			f.params[i] = c.arena.Unknown(c.width)
		}
	}
	for k, v := range globals {
		f.globals[k] = v
	}
	c.frames = append(c.frames, f)
	defer func() { c.frames = c.frames[:len(c.frames)-1] }()

	if err := m.Body(c); err != nil {
		return nil, fmt.Errorf("in %s: %w", m.Name, err)
	}
	if len(f.returns) > m.NumReturns {
		return nil, fmt.Errorf("method %s returns %d values but declares %d", m.Name, len(f.returns), m.NumReturns)
	}
	values := append([]lattice.Value{}, f.returns...)
	for len(values) < m.NumReturns {
		values = append(values, c.arena.Bot(c.width))
	}
	return &MethodReturnValue{Values: values, Globals: f.globals, NewInputBits: f.inputs}, nil
}

// *************** lang.Env implementation **********************

// Arena returns the arena of the analysis
func (c *Context) Arena() *lattice.Arena {
	return c.arena
}

// Width returns the bit width of integers
func (c *Context) Width() int {
	return c.width
}

// Method returns the method being executed, nil if there is none
func (c *Context) Method() *lang.Method {
	if len(c.frames) == 0 {
		return nil
	}
	return c.top().method
}

// Param returns the i-th parameter of the method being executed
func (c *Context) Param(i int) lattice.Value {
	f := c.top()
	if i < 0 || i >= len(f.params) {
		panic(fmt.Errorf("method %s has no parameter %d", f.method.Name, i))
	}
	return f.params[i]
}

// Global returns the current value of a global
func (c *Context) Global(name string) lattice.AppendOnlyValue {
	return c.top().globals[name]
}

// AppendGlobal appends the bits of v to a global
func (c *Context) AppendGlobal(name string, v lattice.Value) {
	f := c.top()
	f.globals[name] = f.globals[name].Append(v)
}

// Input creates a fresh unknown value read at level sec. Its bits are appended to the input global.
func (c *Context) Input(sec lattice.Sec) lattice.Value {
	f := c.top()
	v := c.arena.Unknown(c.width)
	v.Tag = "input_" + sec.String()
	c.registerInput(v, sec)
	f.inputs.Add(v.Bits...)
	c.AppendGlobal(lang.InputGlobal, v)
	return v
}

// Output appends v to the output global of level sec
func (c *Context) Output(sec lattice.Sec, v lattice.Value) {
	c.AppendGlobal(lang.OutputGlobal(sec), v)
}

// Call evaluates a call site of the method being executed with the current handler
func (c *Context) Call(site *lang.CallSite, args ...lattice.Value) ([]lattice.Value, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	f := c.top()
	if site == nil || site.Caller != f.method {
		return nil, fmt.Errorf("%w %v in %s", lang.ErrUnknownSite, site, f.method.Name)
	}
	if c.handler == nil {
		return nil, fmt.Errorf("no handler to evaluate %s", site)
	}
	res, err := c.handler.Analyze(c, site, args, f.globals)
	if err != nil {
		return nil, err
	}
	f.globals = res.Globals
	f.inputs.AddAll(res.NewInputBits)
	return res.Values, nil
}

// Return sets the return values of the method being executed. Later calls join their values with the previous
// ones.
func (c *Context) Return(values ...lattice.Value) {
	f := c.top()
	if !f.returned {
		f.returns = append([]lattice.Value{}, values...)
		f.returned = true
		return
	}
	for i, v := range values {
		if i < len(f.returns) {
			f.returns[i] = c.arena.Join(f.returns[i], v)
		} else {
			f.returns = append(f.returns, v)
		}
	}
}
