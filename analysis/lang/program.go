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

package lang

import (
	"errors"
	"fmt"

	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
)

// MainName is the name of the method holding the main program
const MainName = "$main$"

// InputGlobal is the global every input bit read by a method is appended to
const InputGlobal = "input"

// ErrUnknownSite is returned when a body calls a site that it did not declare
var ErrUnknownSite = errors.New("unknown call site")

// OutputGlobal returns the name of the global the outputs at level sec are appended to
func OutputGlobal(sec lattice.Sec) string {
	return "output_" + sec.String()
}

// Body is the code of a method. It runs against an Env that binds parameters and dispatches calls.
type Body func(env Env) error

// InputDecl declares an input read by a method. Handlers that do not execute the body use it to
// approximate the inputs the method introduces.
type InputDecl struct {
	Sec lattice.Sec
	// Width is the number of bits of the input. 0 means the width of the analysis.
	Width int
}

// Method is a method of the analyzed program
type Method struct {
	Name       string
	NumParams  int
	NumReturns int
	Inputs     []InputDecl
	// Globals are the globals the body appends to, besides the input global
	Globals []string
	Body    Body
	// Sites are the call sites of the body, in declaration order
	Sites []*CallSite

	program *Program
}

func (m *Method) String() string {
	return m.Name
}

// IsMain returns true if m is the main method of its program
func (m *Method) IsMain() bool {
	return m.program != nil && m.program.Main == m
}

// CallTo declares a call site in m's body that calls callee
func (m *Method) CallTo(callee *Method) *CallSite {
	p := m.program
	site := &CallSite{ID: p.nextSite, Caller: m, Callee: callee}
	p.nextSite++
	m.Sites = append(m.Sites, site)
	p.sites = append(p.sites, site)
	return site
}

// ReadsInput declares an input read by the method, see InputDecl
func (m *Method) ReadsInput(sec lattice.Sec, width int) *Method {
	m.Inputs = append(m.Inputs, InputDecl{Sec: sec, Width: width})
	return m
}

// WritesGlobal declares a global the body appends to
func (m *Method) WritesGlobal(name string) *Method {
	if !funcutil.Contains(m.Globals, name) {
		m.Globals = append(m.Globals, name)
	}
	return m
}

// WritesOutput declares an output at level sec written by the body
func (m *Method) WritesOutput(sec lattice.Sec) *Method {
	return m.WritesGlobal(OutputGlobal(sec))
}

// AllInputs returns the inputs declared by m and by every method reachable from its call sites
func (m *Method) AllInputs() []InputDecl {
	var res []InputDecl
	m.visitCallees(func(c *Method) {
		res = append(res, c.Inputs...)
	})
	return res
}

// AllGlobals returns the sorted globals declared by m and by every method reachable from its call sites
func (m *Method) AllGlobals() []string {
	set := map[string]bool{}
	m.visitCallees(func(c *Method) {
		for _, g := range c.Globals {
			set[g] = true
		}
	})
	return funcutil.SortedKeys(set)
}

// visitCallees calls f once on m and on every method transitively called from m, in depth-first order
func (m *Method) visitCallees(f func(*Method)) {
	seen := map[*Method]bool{}
	var visit func(*Method)
	visit = func(c *Method) {
		if seen[c] {
			return
		}
		seen[c] = true
		f(c)
		for _, s := range c.Sites {
			if s.Callee != nil {
				visit(s.Callee)
			}
		}
	}
	visit(m)
}

// CallSite is a call expression in the body of a method
type CallSite struct {
	ID     int
	Caller *Method
	Callee *Method
}

func (c *CallSite) String() string {
	return fmt.Sprintf("%s@%d->%s", c.Caller.Name, c.ID, c.Callee.Name)
}

// Program is a set of methods with a main method
type Program struct {
	// Methods are the methods in declaration order, Main first
	Methods []*Method
	Main    *Method

	byName   map[string]*Method
	sites    []*CallSite
	nextSite int
}

// NewProgram returns a program with an empty main method
func NewProgram() *Program {
	p := &Program{byName: map[string]*Method{}}
	p.Main, _ = p.NewMethod(MainName, 0, 0, nil)
	return p
}

// NewMethod adds a method to the program. Method names are unique.
func (p *Program) NewMethod(name string, numParams, numReturns int, body Body) (*Method, error) {
	if _, ok := p.byName[name]; ok {
		return nil, fmt.Errorf("method %s already defined", name)
	}
	if numParams < 0 || numReturns < 0 {
		return nil, fmt.Errorf("method %s: negative number of parameters or return values", name)
	}
	m := &Method{Name: name, NumParams: numParams, NumReturns: numReturns, Body: body, program: p}
	p.byName[name] = m
	p.Methods = append(p.Methods, m)
	return m, nil
}

// SetMain sets the body of the main method
func (p *Program) SetMain(body Body) {
	p.Main.Body = body
}

// Lookup returns the method with the given name
func (p *Program) Lookup(name string) (*Method, bool) {
	m, ok := p.byName[name]
	return m, ok
}

// Sites returns all the call sites of the program in declaration order
func (p *Program) Sites() []*CallSite {
	return p.sites
}

// Validate checks that all methods have a body and all call sites stay inside the program
func (p *Program) Validate() error {
	for _, m := range p.Methods {
		if m.Body == nil {
			return fmt.Errorf("method %s has no body", m.Name)
		}
		for _, s := range m.Sites {
			if s.Callee == nil || s.Callee.program != p {
				return fmt.Errorf("call site %d of %s calls a method outside of the program", s.ID, m.Name)
			}
			if s.Callee == p.Main {
				return fmt.Errorf("call site %d of %s calls the main method", s.ID, m.Name)
			}
		}
	}
	return nil
}
