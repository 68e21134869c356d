// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/intel/hwp-manager/pkg/version"
)

var (
	serverFlag string
	cpuFlag    string
	jsonFlag   bool
)

var rootCmd = &cobra.Command{
	Use:           "hwpctl",
	Short:         "inspect and control Intel Hardware P-states",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Fprint(cmd.OutOrStdout())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hwpctl:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", defaultServer(),
		"address of the HTTP endpoint of hwp-manager")
	rootCmd.PersistentFlags().StringVarP(&cpuFlag, "cpu", "c", "",
		"CPUs to operate on, as a kernel-style list (default: all)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false,
		"print raw JSON where available")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(versionCmd)
}
