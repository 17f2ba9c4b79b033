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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const chainGraph = `bits:
  - id: o
    val: u
    deps: [m]
    weight: 2
  - id: m
    val: u
    deps: [h]
  - id: h
    val: u
    weight: 3
    input: h
sources: [o]
sinks: [h]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("could not write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLeakageCommand(t *testing.T) {
	graph := writeFile(t, "chain.yaml", chainGraph)
	for _, alg := range []string{"maxflow", "maxsat-gini"} {
		out, err := execute(t, "leakage", "--algorithm", alg, graph, graph)
		if err != nil {
			t.Fatalf("leakage with %s failed: %v", alg, err)
		}
		want := graph + ": leakage 1 bits, min cut {m}\n"
		if out != want+want {
			t.Errorf("unexpected output with %s: %q", alg, out)
		}
	}
}

func TestLeakageCommandErrors(t *testing.T) {
	graph := writeFile(t, "chain.yaml", chainGraph)
	if _, err := execute(t, "leakage", "--algorithm", "nope", graph); err == nil {
		t.Errorf("expected an error for an unknown algorithm")
	}
	bad := writeFile(t, "bad.yaml", "bits: [{id: x, deps: [y]}]\n")
	out, err := execute(t, "leakage", "--algorithm", "maxflow", graph, bad)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 graphs failed") {
		t.Errorf("expected one failed graph, got %v", err)
	}
	if !strings.Contains(out, "leakage 1 bits") {
		t.Errorf("the valid graph should still be reported, got %q", out)
	}
}

func TestWDIMACSCommand(t *testing.T) {
	graph := writeFile(t, "chain.yaml", chainGraph)
	out, err := execute(t, "wdimacs", graph)
	if err != nil {
		t.Fatalf("wdimacs failed: %v", err)
	}
	if !strings.HasPrefix(out, "p wcnf ") {
		t.Errorf("expected a WDIMACS header, got %q", out)
	}
	path := filepath.Join(t.TempDir(), "out.wcnf")
	if _, err := execute(t, "wdimacs", "-o", path, graph); err != nil {
		t.Fatalf("wdimacs failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != out {
		t.Errorf("the output file should hold the instance, got %q (%v)", string(b), err)
	}
}

func TestHandlerCommand(t *testing.T) {
	out, err := execute(t, "handler", "handler=inlining;maxrec=1;bot={handler=summary;mode=coind}")
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	want := "handler=inlining;maxrec=1;bot={handler=summary;maxiter=inf;bot={handler=basic};mode=coind;" +
		"reduction=mincut;csmaxrec=0;dot=}\n" +
		"inlining maxrec=1\n" +
		"  summary mode=coind reduction=mincut maxiter=inf csmaxrec=0\n" +
		"    basic\n"
	if out != want {
		t.Errorf("expected\n%s\ngot\n%s", want, out)
	}

	out, err = execute(t, "--handler", "basic", "handler")
	if err != nil || out != "handler=basic\nbasic\n" {
		t.Errorf("expected the handler of the flags, got %q (%v)", out, err)
	}
	if _, err := execute(t, "handler", "handler=nope"); err == nil {
		t.Errorf("expected an error for an unknown handler")
	}
}

func TestConfigFile(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "options:\n  handler: handler=summary;reduction=basic\n")
	out, err := execute(t, "--config", cfg, "handler")
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(out, "reduction=basic") {
		t.Errorf("expected the handler of the config file, got %q", out)
	}
	if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "handler"); err == nil {
		t.Errorf("expected an error for a missing config file")
	}
}
