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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// WriteWDIMACS writes the problem in the weighted DIMACS format: a header "p wcnf nVars nClauses top", the hard
// clauses with weight top, then one soft unit clause "w -v 0" per weighted variable. Weights are scaled by the
// multiplier and rounded up to integers.
func (p *Problem[V]) WriteWDIMACS(w io.Writer, roundUp bool) error {
	top := p.TopWeight(roundUp)
	if top > maxTopWeight {
		return fmt.Errorf("top weight %g is too large for a wdimacs instance", top)
	}
	mult := p.Multiplier(roundUp)
	infW := p.InfiniteWeight(roundUp)
	soft := 0
	for _, id := range p.weighted {
		if p.weights[id] > 0 {
			soft++
		}
	}
	soft += len(p.infinite)

	topStr := formatWeight(top)
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "p wcnf %d %d %s\n", len(p.vars), len(p.clauses)+soft, topStr)
	for _, clause := range p.clauses {
		bw.WriteString(topStr)
		for _, l := range clause {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(l))
		}
		bw.WriteString(" 0\n")
	}
	for _, id := range p.weighted {
		if p.weights[id] <= 0 {
			continue
		}
		fmt.Fprintf(bw, "%s %d 0\n", formatWeight(math.Ceil(p.weights[id]*mult)), -id)
	}
	for _, id := range p.infinite {
		fmt.Fprintf(bw, "%s %d 0\n", formatWeight(infW), -id)
	}
	return bw.Flush()
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(math.Ceil(w), 'f', 0, 64)
}

// ParseResult parses the output of a MaxSAT solver. The status line "s UNKNOWN" or "s UNSATISFIABLE" gives
// ErrNoResult. The model is read from the "v" lines, either as a list of integer literals, possibly over several
// lines, or as a single string of 0 and 1 with one character per variable. Literals of unknown variables are
// skipped.
func (p *Problem[V]) ParseResult(r io.Reader) (Result[V], error) {
	n := len(p.vars)
	values := make([]bool, n+1)
	sawModel := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<30)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "s":
			status := strings.Join(fields[1:], " ")
			if status == "UNKNOWN" || status == "UNSATISFIABLE" {
				return Result[V]{}, fmt.Errorf("solver status %s: %w", status, ErrNoResult)
			}
		case "v":
			sawModel = true
			vals := fields[1:]
			if len(vals) == 1 && isBinaryString(vals[0]) && (len(vals[0]) > 1 || n == 1) {
				for i, c := range vals[0] {
					if i+1 > n {
						break
					}
					values[i+1] = c == '1'
				}
				continue
			}
			for _, f := range vals {
				lit, err := strconv.Atoi(f)
				if err != nil {
					return Result[V]{}, fmt.Errorf("invalid literal %q in solver output", f)
				}
				if lit == 0 || abs(lit) > n {
					continue
				}
				values[abs(lit)] = lit > 0
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Result[V]{}, fmt.Errorf("could not read solver output: %w", err)
	}
	if !sawModel {
		return Result[V]{}, fmt.Errorf("no model in solver output: %w", ErrNoResult)
	}
	return p.result(values), nil
}

func isBinaryString(s string) bool {
	for _, c := range s {
		if c != '0' && c != '1' {
			return false
		}
	}
	return len(s) > 0
}
