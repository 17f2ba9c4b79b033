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
	"strconv"
	"strings"

	"github.com/awslabs/ar-qif-tools/internal/funcutil"
	"golang.org/x/exp/slices"
)

// handlerProperty is the property holding the name of the handler
const handlerProperty = "handler"

// Spec is the typed configuration of a handler. It is one of BasicConfig, InliningConfig and SummaryConfig.
type Spec interface {
	// Name returns the name of the handler in the registry
	Name() string
	// String returns the normalized textual specification, with every option set
	String() string

	isSpec()
}

// BasicConfig configures the basic handler
type BasicConfig struct{}

// InliningConfig configures the inlining handler
type InliningConfig struct {
	MaxRec int
	Bot    Spec
}

// SummaryConfig configures the summary handler
type SummaryConfig struct {
	// MaxIter is the maximal number of method analyses in coinduction mode, 0 means unbounded
	MaxIter int
	// Bot is the handler whose results initialize the coinduction
	Bot       Spec
	Mode      Mode
	Reduction Reduction
	// CallStringMaxRec is the inlining depth used in front of the summaries during the fixpoint iteration
	CallStringMaxRec int
	// Dot is the directory the summaries are written to as dot graphs, empty for none
	Dot string
}

func (BasicConfig) Name() string    { return "basic" }
func (InliningConfig) Name() string { return "inlining" }
func (SummaryConfig) Name() string  { return "summary" }

func (BasicConfig) isSpec()    {}
func (InliningConfig) isSpec() {}
func (SummaryConfig) isSpec()  {}

func (c BasicConfig) String() string {
	return handlerProperty + "=" + c.Name()
}

func (c InliningConfig) String() string {
	return fmt.Sprintf("%s=%s;maxrec=%d;bot={%s}", handlerProperty, c.Name(), c.MaxRec, c.Bot)
}

func (c SummaryConfig) String() string {
	maxIter := "inf"
	if c.MaxIter > 0 {
		maxIter = strconv.Itoa(c.MaxIter)
	}
	return fmt.Sprintf("%s=%s;maxiter=%s;bot={%s};mode=%s;reduction=%s;csmaxrec=%d;dot=%s", handlerProperty,
		c.Name(), maxIter, c.Bot, c.Mode, c.Reduction, c.CallStringMaxRec, c.Dot)
}

// Mode is the fixpoint mode of the summary handler
type Mode int

const (
	// Auto uses induction
	Auto Mode = iota
	// Coinduction starts from the results of the bot handler. It is sound for recursive programs.
	Coinduction
	// Induction starts from summaries without dependencies. It is only sound for programs without recursion.
	Induction
)

var modeNames = map[Mode]string{Auto: "auto", Coinduction: "coind", Induction: "ind"}

func (m Mode) String() string {
	return modeNames[m]
}

// Reduction is the policy used to shrink the graph of a method into its summary
type Reduction int

const (
	// MinCutReduction keeps the bits of a minimum cut between the results and the parameters
	MinCutReduction Reduction = iota
	// BasicReduction connects every result bit directly to the parameter and input bits it depends on
	BasicReduction
)

var reductionNames = map[Reduction]string{MinCutReduction: "mincut", BasicReduction: "basic"}

func (r Reduction) String() string {
	return reductionNames[r]
}

// property is an option of a handler. A property whose default is absent must be set.
type property struct {
	name string
	def  funcutil.Optional[string]
}

// scheme is the entry of a handler in the registry
type scheme struct {
	props []property
	build func(props map[string]string) (Spec, error)
}

func (s *scheme) names() []string {
	return append([]string{handlerProperty}, funcutil.Map(s.props, func(p property) string { return p.name })...)
}

var registry map[string]*scheme

func init() {
	registry = map[string]*scheme{
		"basic": {
			build: func(map[string]string) (Spec, error) { return BasicConfig{}, nil },
		},
		"inlining": {
			props: []property{
				{name: "maxrec", def: funcutil.Some("2")},
				{name: "bot", def: funcutil.Some("basic")},
			},
			build: func(props map[string]string) (Spec, error) {
				maxRec, err := parseCount("maxrec", props["maxrec"], false)
				if err != nil {
					return nil, err
				}
				bot, err := ParseSpec(props["bot"])
				if err != nil {
					return nil, err
				}
				return InliningConfig{MaxRec: maxRec, Bot: bot}, nil
			},
		},
		"summary": {
			props: []property{
				{name: "maxiter", def: funcutil.Some("inf")},
				{name: "bot", def: funcutil.Some("basic")},
				{name: "mode", def: funcutil.Some("auto")},
				{name: "reduction", def: funcutil.Some("mincut")},
				{name: "csmaxrec", def: funcutil.Some("0")},
				{name: "dot", def: funcutil.Some("")},
			},
			build: buildSummaryConfig,
		},
	}
}

// HandlerNames returns the names of the registered handlers, sorted
func HandlerNames() []string {
	return funcutil.SortedKeys(registry)
}

func buildSummaryConfig(props map[string]string) (Spec, error) {
	maxIter, err := parseCount("maxiter", props["maxiter"], true)
	if err != nil {
		return nil, err
	}
	csMaxRec, err := parseCount("csmaxrec", props["csmaxrec"], false)
	if err != nil {
		return nil, err
	}
	mode, err := parseEnum("mode", props["mode"], modeNames)
	if err != nil {
		return nil, err
	}
	reduction, err := parseEnum("reduction", props["reduction"], reductionNames)
	if err != nil {
		return nil, err
	}
	bot, err := ParseSpec(props["bot"])
	if err != nil {
		return nil, err
	}
	return SummaryConfig{
		MaxIter:          maxIter,
		Bot:              bot,
		Mode:             mode,
		Reduction:        reduction,
		CallStringMaxRec: csMaxRec,
		Dot:              props["dot"],
	}, nil
}

// parseCount parses a non-negative integer. If allowInf is set, "inf" is parsed as 0.
func parseCount(name, val string, allowInf bool) (int, error) {
	if allowInf && val == "inf" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("property %s: %q is not a non-negative integer", name, val)
	}
	return n, nil
}

func parseEnum[T comparable](name, val string, names map[T]string) (T, error) {
	for k, v := range names {
		if v == val {
			return k, nil
		}
	}
	var zero T
	valid := funcutil.SortedKeys(invert(names))
	return zero, fmt.Errorf("property %s: unknown value %s, valid values are: %s", name, val,
		strings.Join(valid, ", "))
}

func invert[K comparable, V comparable](m map[K]V) map[V]K {
	res := make(map[V]K, len(m))
	for k, v := range m {
		res[v] = k
	}
	return res
}

// ParseSpec parses the textual specification of a handler, e.g. "handler=inlining;maxrec=2;bot=basic". Unset
// properties get their default values. The errors are *InitializationError values.
func ParseSpec(input string) (Spec, error) {
	props, err := parseProperties(input)
	if err != nil {
		return nil, &InitializationError{Spec: input, Err: err}
	}
	name, ok := props[handlerProperty]
	if !ok {
		return nil, &InitializationError{Spec: input,
			Err: fmt.Errorf("for string \"%s\": property %s not set", input, handlerProperty)}
	}
	s, ok := registry[name]
	if !ok {
		return nil, &InitializationError{Spec: input,
			Err: fmt.Errorf("unknown handler %s, possible handlers are: %s", name,
				strings.Join(HandlerNames(), ", "))}
	}
	valid := s.names()
	for _, key := range funcutil.SortedKeys(props) {
		if !funcutil.Contains(valid, key) {
			sorted := append([]string{}, valid...)
			slices.Sort(sorted)
			return nil, &InitializationError{Spec: input,
				Err: fmt.Errorf("for string \"%s\": property %s unknown, valid properties are: %s", input, key,
					strings.Join(sorted, ", "))}
		}
	}
	for _, p := range s.props {
		if _, ok := props[p.name]; ok {
			continue
		}
		def, ok := p.def.Get()
		if !ok {
			return nil, &InitializationError{Spec: input,
				Err: fmt.Errorf("for string \"%s\": property %s not set", input, p.name)}
		}
		props[p.name] = def
	}
	spec, err := s.build(props)
	if err != nil {
		return nil, &InitializationError{Spec: input, Err: err}
	}
	return spec, nil
}

// Build creates the handler described by spec
func Build(spec Spec) (Handler, error) {
	switch s := spec.(type) {
	case BasicConfig:
		return Basic{}, nil
	case InliningConfig:
		bot, err := Build(s.Bot)
		if err != nil {
			return nil, err
		}
		return NewInlining(s.MaxRec, bot), nil
	case SummaryConfig:
		bot, err := Build(s.Bot)
		if err != nil {
			return nil, err
		}
		return NewSummary(s, bot), nil
	}
	return nil, &InitializationError{Spec: fmt.Sprintf("%v", spec), Err: fmt.Errorf("unsupported handler %T", spec)}
}
