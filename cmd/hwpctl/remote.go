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
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/intel/hwp-manager/pkg/hwp"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of CPUs managed by hwp-manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, raw, err := newClient(serverFlag).Status()
		if err != nil {
			return err
		}
		if jsonFlag {
			_, err := cmd.OutOrStdout().Write(raw)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "frequency control: %s\n\n", s.Type)
		printCores(cmd.OutOrStdout(), s.Cores)
		return nil
	},
}

var eppCmd = &cobra.Command{
	Use:   "epp",
	Short: "Energy/performance preference of CPUs",
}

var eppGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the energy/performance preference of CPUs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(serverFlag)
		cpus, err := managedCPUs(c)
		if err != nil {
			return err
		}

		var result *multierror.Error
		t := newTable(cmd.OutOrStdout(), "CPU", "EPP")
		for _, cpu := range cpus {
			epp, err := c.EPP(cpu)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			t.Append([]string{strconv.Itoa(cpu), strconv.Itoa(epp) + "%"})
		}
		t.Render()
		return result.ErrorOrNil()
	},
}

var eppSetCmd = &cobra.Command{
	Use:   "set PERCENT",
	Short: "Set the energy/performance preference of CPUs, 0 favors performance",
	Long: "Set the energy/performance preference of CPUs, 0 favors performance.\n" +
		"Values outside 0-100 are clamped. Negative values must follow '--'.",
	Example: "  hwpctl epp set 40 --cpu 0-3\n  hwpctl epp set -- -5",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := hwp.ParseEPP(args[0])
		if err != nil {
			return err
		}

		c := newClient(serverFlag)
		cpus, err := managedCPUs(c)
		if err != nil {
			return err
		}

		var result *multierror.Error
		for _, cpu := range cpus {
			if err := c.SetEPP(cpu, value); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the HWP registers of CPUs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(serverFlag)
		cpus, err := managedCPUs(c)
		if err != nil {
			return err
		}

		var result *multierror.Error
		for _, cpu := range cpus {
			dump, err := c.Dump(cpu)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			fmt.Fprint(cmd.OutOrStdout(), dump)
		}
		return result.ErrorOrNil()
	},
}

var freqCmd = &cobra.Command{
	Use:   "freq",
	Short: "Show the frequency settings of CPUs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(serverFlag)
		cpus, err := managedCPUs(c)
		if err != nil {
			return err
		}

		var result *multierror.Error
		t := newTable(cmd.OutOrStdout(), "CPU", "MHz", "Type")
		for _, cpu := range cpus {
			f, err := c.Freq(cpu)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			mhz := "unknown"
			if f.FrequencyMHz != hwp.Unknown {
				mhz = strconv.Itoa(f.FrequencyMHz)
			}
			t.Append([]string{strconv.Itoa(cpu), mhz, f.Type.String()})
		}
		t.Render()
		return result.ErrorOrNil()
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show the HWP metrics exported by hwp-manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := newClient(serverFlag).Metrics()
		if err != nil {
			return err
		}
		defer body.Close()

		families, err := parseMetrics(body)
		if err != nil {
			return err
		}
		printMetrics(cmd.OutOrStdout(), families)
		return nil
	},
}

// managedCPUs returns the CPUs selected with --cpu, or all CPUs managed by the server.
func managedCPUs(c *client) ([]int, error) {
	if cpuFlag != "" {
		return parseCPUs(cpuFlag)
	}
	s, _, err := c.Status()
	if err != nil {
		return nil, err
	}
	cpus := make([]int, 0, len(s.Cores))
	for _, core := range s.Cores {
		cpus = append(cpus, core.CPU)
	}
	return cpus, nil
}

// parseMetrics parses text exposition format, keeping only HWP metric families.
func parseMetrics(r io.Reader) ([]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	all, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %v", err)
	}

	families := []*dto.MetricFamily{}
	for name, mf := range all {
		if strings.HasPrefix(name, "hwp_") {
			families = append(families, mf)
		}
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return families, nil
}

func printMetrics(w io.Writer, families []*dto.MetricFamily) {
	t := newTable(w, "Metric", "Labels", "Value")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			t.Append([]string{mf.GetName(), strings.Join(labels, ","), formatValue(m)})
		}
	}
	t.Render()
}

func formatValue(m *dto.Metric) string {
	switch {
	case m.Gauge != nil:
		return strconv.FormatFloat(m.GetGauge().GetValue(), 'f', -1, 64)
	case m.Counter != nil:
		return strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64)
	case m.Untyped != nil:
		return strconv.FormatFloat(m.GetUntyped().GetValue(), 'f', -1, 64)
	}
	return "-"
}

func init() {
	eppCmd.AddCommand(eppGetCmd)
	eppCmd.AddCommand(eppSetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(eppCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(freqCmd)
	rootCmd.AddCommand(metricsCmd)
}
