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
	"errors"
	"strings"
	"testing"

	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/google/go-cmp/cmp"
)

func TestParseSpec(t *testing.T) {
	summary := SummaryConfig{Bot: BasicConfig{}, Mode: Auto, Reduction: MinCutReduction}
	tests := []struct {
		input string
		want  Spec
	}{
		{"basic", BasicConfig{}},
		{"handler=basic", BasicConfig{}},
		{"handler=inlining", InliningConfig{MaxRec: 2, Bot: BasicConfig{}}},
		{config.DefaultHandler, InliningConfig{MaxRec: 2, Bot: BasicConfig{}}},
		{"handler=inlining;maxrec=3;", InliningConfig{MaxRec: 3, Bot: BasicConfig{}}},
		{"handler=summary", summary},
		{"handler=inlining;maxrec=2;bot={handler=summary;bot=basic}", InliningConfig{MaxRec: 2, Bot: summary}},
		{" handler = summary ; mode=coind;maxiter=5; reduction=basic ", SummaryConfig{
			MaxIter: 5, Bot: BasicConfig{}, Mode: Coinduction, Reduction: BasicReduction,
		}},
		{"handler=summary;mode=ind;csmaxrec=2;dot=out/graphs;bot={handler=inlining;bot={handler=basic}}",
			SummaryConfig{
				Bot:              InliningConfig{MaxRec: 2, Bot: BasicConfig{}},
				Mode:             Induction,
				Reduction:        MinCutReduction,
				CallStringMaxRec: 2,
				Dot:              "out/graphs",
			}},
	}
	for _, test := range tests {
		got, err := ParseSpec(test.input)
		if err != nil {
			t.Errorf("could not parse %q: %v", test.input, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("unexpected spec for %q: %s", test.input, diff)
		}
	}
}

func TestSpecString(t *testing.T) {
	spec, err := ParseSpec("handler=inlining;maxrec=2;bot={handler=summary;bot=basic}")
	if err != nil {
		t.Fatalf("could not parse: %v", err)
	}
	want := "handler=inlining;maxrec=2;bot={handler=summary;maxiter=inf;bot={handler=basic};mode=auto;" +
		"reduction=mincut;csmaxrec=0;dot=}"
	if spec.String() != want {
		t.Errorf("expected %s, got %s", want, spec.String())
	}
	again, err := ParseSpec(spec.String())
	if err != nil {
		t.Fatalf("could not parse the normalized spec: %v", err)
	}
	if diff := cmp.Diff(spec, again); diff != "" {
		t.Errorf("the normalized spec should parse to the same spec: %s", diff)
	}
}

func TestParseSpecErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"handler=foo", "unknown handler foo, possible handlers are: basic, inlining, summary"},
		{"handler=basic;x=1", `for string "handler=basic;x=1": property x unknown, valid properties are: handler`},
		{"handler=inlining;bot={handler=basic", "handler=inlining;bot={handler=basic[unexpected end]"},
		{"handler=inlining;maxrec=x", `property maxrec: "x" is not a non-negative integer`},
		{"handler=summary;mode=fast", "unknown value fast, valid values are: auto, coind, ind"},
		{"=basic", "[expected identifier]=basic"},
		{"maxrec=2", `property handler not set`},
		{"handler=inlining;bot={handler=nope}", "unknown handler nope"},
	}
	for _, test := range tests {
		_, err := ParseSpec(test.input)
		if err == nil {
			t.Errorf("expected an error for %q", test.input)
			continue
		}
		var initErr *InitializationError
		if !errors.As(err, &initErr) || initErr.Spec != test.input {
			t.Errorf("expected an initialization error for %q, got %v", test.input, err)
		}
		if !strings.Contains(err.Error(), test.msg) {
			t.Errorf("expected the error for %q to contain %q, got %q", test.input, test.msg, err.Error())
		}
	}
}

func TestParseErrorMarksPosition(t *testing.T) {
	_, err := parseProperties("handler={basic}}")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected a parse error, got %v", err)
	}
	if parseErr.Pos != 15 {
		t.Errorf("expected the error at position 15, got %d", parseErr.Pos)
	}
	if want := "handler={basic}[expected ';']}"; parseErr.Error() != want {
		t.Errorf("expected %s, got %s", want, parseErr.Error())
	}
}

func TestParseErrorOfHandlerName(t *testing.T) {
	_, err := parseProperties("{basic}}")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected a parse error, got %v", err)
	}
	if parseErr.Input != "{basic}}" || parseErr.Pos != 7 {
		t.Errorf("expected the error at position 7 of the input, got %d in %q", parseErr.Pos, parseErr.Input)
	}
	if want := "{basic}[expected ';']}"; parseErr.Error() != want {
		t.Errorf("expected %s, got %s", want, parseErr.Error())
	}
}

func TestBuild(t *testing.T) {
	h, err := New("handler=inlining;maxrec=1;bot={handler=summary;mode=coind;maxiter=3}")
	if err != nil {
		t.Fatalf("could not build handler: %v", err)
	}
	inl, ok := h.(*Inlining)
	if !ok || inl.MaxRec != 1 {
		t.Fatalf("expected an inlining handler with maxrec 1, got %#v", h)
	}
	s, ok := inl.Bot.(*Summary)
	if !ok || s.Config.MaxIter != 3 || s.Config.Mode != Coinduction {
		t.Fatalf("expected a coinductive summary handler, got %#v", inl.Bot)
	}
	if _, ok := s.Bot.(Basic); !ok {
		t.Errorf("expected the basic handler as bot of the summary handler")
	}
}
