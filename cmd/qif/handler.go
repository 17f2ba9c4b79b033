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
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/ar-qif-tools/analysis/handlers"
	"github.com/awslabs/ar-qif-tools/internal/formatutil"
	"github.com/spf13/cobra"
)

func newHandlerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "handler [spec]",
		Short: "Parse a handler specification and print it with all its options",
		Long: `Parses a method invocation handler specification, e.g. "handler=inlining;maxrec=1;bot={handler=summary}",
and prints its normalized form and the tree of handlers. Without argument, the handler of the configuration is
printed. Available handlers: ` + strings.Join(handlers.HandlerNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			text := s.cfg.Handler
			if len(args) == 1 {
				text = args[0]
			}
			spec, err := handlers.ParseSpec(text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, spec.String())
			printSpec(out, formatutil.NewColorizer(out), spec, 0)
			return nil
		},
	}
}

// printSpec prints one line per handler, the bot handlers indented below the handler using them
func printSpec(w io.Writer, c formatutil.Colorizer, spec handlers.Spec, depth int) {
	indent := strings.Repeat("  ", depth)
	switch s := spec.(type) {
	case handlers.BasicConfig:
		fmt.Fprintf(w, "%s%s\n", indent, c.Cyan(s.Name()))
	case handlers.InliningConfig:
		fmt.Fprintf(w, "%s%s maxrec=%d\n", indent, c.Cyan(s.Name()), s.MaxRec)
		printSpec(w, c, s.Bot, depth+1)
	case handlers.SummaryConfig:
		maxIter := "inf"
		if s.MaxIter > 0 {
			maxIter = fmt.Sprint(s.MaxIter)
		}
		fmt.Fprintf(w, "%s%s mode=%s reduction=%s maxiter=%s csmaxrec=%d\n", indent, c.Cyan(s.Name()), s.Mode,
			s.Reduction, maxIter, s.CallStringMaxRec)
		printSpec(w, c, s.Bot, depth+1)
	}
}
