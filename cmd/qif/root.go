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
	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/awslabs/ar-qif-tools/internal/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalFlags are the flags shared by all subcommands
type globalFlags struct {
	configPath string
	verbose    bool
	handler    string
	algorithm  string
}

func (f *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "config file (yaml or toml)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "print debugging information")
	fs.StringVar(&f.handler, "handler", "", "method invocation handler, overrides the config file")
	fs.StringVar(&f.algorithm, "algorithm", "", "leakage algorithm, overrides the config file")
}

// load returns the configuration of the config file, with the overrides of the flags applied
func (f *globalFlags) load() (*config.Config, error) {
	cfg := config.NewDefault()
	if f.configPath != "" {
		config.SetGlobalConfig(f.configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.verbose && cfg.LogLevel < int(config.DebugLevel) {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if f.handler != "" {
		cfg.Handler = f.handler
	}
	if f.algorithm != "" {
		cfg.LeakageAlgorithm = f.algorithm
	}
	return cfg, nil
}

// session is the state shared by the subcommands of one invocation
type session struct {
	cfg     *config.Config
	logger  *config.LogGroup
	metrics *metrics.Metrics
}

func newSession(cmd *cobra.Command, f *globalFlags) (*session, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(cmd.ErrOrStderr())
	s := &session{cfg: cfg, logger: logger}
	if cfg.MetricsFile != "" {
		s.metrics = metrics.New()
	}
	return s, nil
}

// close writes the metrics of the session
func (s *session) close() {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.WriteTo(s.cfg.MetricsFile); err != nil {
		s.logger.Warnf("could not write metrics: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "qif",
		Short:         "quantitative information flow tools",
		Long:          `qif bounds the number of secret bits that flow to public outputs of a bit dependency graph.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(root.PersistentFlags())
	root.AddCommand(newLeakageCmd(flags), newWDIMACSCmd(flags), newHandlerCmd(flags))
	return root
}
