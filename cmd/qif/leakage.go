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
	"os"
	"runtime"

	"github.com/awslabs/ar-qif-tools/analysis/leakage"
	"github.com/awslabs/ar-qif-tools/internal/formatutil"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
	"github.com/spf13/cobra"
)

func loadGraphFile(path string) (*leakage.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := leakage.LoadGraph(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

type leakageReport struct {
	path  string
	graph *leakage.Graph
	res   leakage.ComputationResult
	err   error
}

func newLeakageCmd(flags *globalFlags) *cobra.Command {
	jobs := runtime.NumCPU()
	cmd := &cobra.Command{
		Use:   "leakage <graph.yaml>...",
		Short: "Compute the leakage bound and a min cut of graph files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer s.close()
			bounder, err := leakage.NewBounder(s.cfg, s.logger, s.metrics)
			if err != nil {
				return err
			}
			reports := funcutil.MapParallel(args, func(path string) leakageReport {
				r := leakageReport{path: path}
				r.graph, r.err = loadGraphFile(path)
				if r.err != nil {
					return r
				}
				s.logger.Debugf("Computing the leakage of %s with %s ...", path, bounder.Name())
				r.res, r.err = bounder.Bound(cmd.Context(), r.graph.Arena, r.graph.SourcesAndSinks)
				return r
			}, jobs)

			c := formatutil.NewColorizer(cmd.OutOrStdout())
			failed := 0
			for _, r := range reports {
				if r.err != nil {
					failed++
					s.logger.Errorf("%s: %v", r.path, r.err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: leakage %s bits, min cut %s\n", c.Bold(r.path),
					c.Leakage(r.res.MaxFlow), c.List(r.graph.Describe(r.res.MinCut)))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d graphs failed", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", jobs, "number of graphs analyzed in parallel")
	return cmd
}

func newWDIMACSCmd(flags *globalFlags) *cobra.Command {
	output := ""
	cmd := &cobra.Command{
		Use:   "wdimacs <graph.yaml>",
		Short: "Write the MaxSAT instance of a graph file in the WDIMACS format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer s.close()
			g, err := loadGraphFile(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return leakage.WriteWDIMACS(w, g.Arena, g.SourcesAndSinks, s.cfg.BitWidth, s.cfg.RoundUp())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, standard output if empty")
	return cmd
}
