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

// Package formatutil formats the reports of the command line tools. Colors are only used when the output is a
// terminal.
package formatutil

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	bold   = "\033[1m"
	faint  = "\033[2m"
	red    = "\033[1;31m"
	green  = "\033[1;32m"
	yellow = "\033[1;33m"
	cyan   = "\033[1;36m"
	reset  = "\033[0m"
)

// Colorizer wraps strings in terminal escape sequences when it is enabled
type Colorizer struct {
	enabled bool
}

// NewColorizer returns a colorizer for w. Colors are enabled if w is a terminal and NO_COLOR is not set.
func NewColorizer(w io.Writer) Colorizer {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return Colorizer{}
	}
	return Colorizer{enabled: term.IsTerminal(int(f.Fd()))}
}

// Plain returns a colorizer that never adds colors
func Plain() Colorizer {
	return Colorizer{}
}

// Enabled returns true if the colorizer adds escape sequences
func (c Colorizer) Enabled() bool {
	return c.enabled
}

func (c Colorizer) wrap(code string, args []any) string {
	s := fmt.Sprint(args...)
	if !c.enabled {
		return s
	}
	return code + s + reset
}

func (c Colorizer) Bold(args ...any) string   { return c.wrap(bold, args) }
func (c Colorizer) Faint(args ...any) string  { return c.wrap(faint, args) }
func (c Colorizer) Red(args ...any) string    { return c.wrap(red, args) }
func (c Colorizer) Green(args ...any) string  { return c.wrap(green, args) }
func (c Colorizer) Yellow(args ...any) string { return c.wrap(yellow, args) }
func (c Colorizer) Cyan(args ...any) string   { return c.wrap(cyan, args) }

// Leakage formats a number of leaked bits: green when nothing leaks, red when the leakage is unbounded and
// yellow otherwise
func (c Colorizer) Leakage(bits float64) string {
	switch {
	case math.IsInf(bits, 1):
		return c.Red("inf")
	case bits == 0:
		return c.Green("0")
	}
	return c.Yellow(strconv.FormatFloat(bits, 'f', -1, 64))
}

// List formats names as a brace delimited set
func (c Colorizer) List(names []string) string {
	return "{" + c.Faint(strings.Join(names, ", ")) + "}"
}

// Sanitize removes the escape sequences of s
func Sanitize(s string) string {
	r := strconv.Quote(s)
	return r[1 : len(r)-1]
}
