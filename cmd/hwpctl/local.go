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
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/intel/hwp-manager/pkg/hwp"
	"github.com/intel/hwp-manager/pkg/msr"
	"github.com/intel/hwp-manager/pkg/sysfs"
)

var eppFlag int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check if this system supports Hardware P-states",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := sysfs.DiscoverSystem()
		if err != nil {
			return err
		}
		s := hwp.Discover(hwp.WithDriverProbe(sys)).Status()
		msrDevice := msrAvailable(sys)
		if jsonFlag {
			return printJSON(cmd.OutOrStdout(), struct {
				hwp.Status
				MsrDevice bool `json:"msrDevice"`
			}{s, msrDevice})
		}

		t := newTable(cmd.OutOrStdout(), "Property", "Value")
		t.Append([]string{"supported", strconv.FormatBool(s.Supported)})
		if !s.Supported {
			t.Append([]string{"reason", s.Reason})
			t.Append([]string{"fallback", s.Fallback})
		}
		t.Append([]string{"vendor", s.CPU.Vendor})
		t.Append([]string{"brand", s.CPU.Brand})
		t.Append([]string{"family/model", fmt.Sprintf("%#x/%#x", s.CPU.Family, s.CPU.Model)})
		t.Append([]string{"notifications", strconv.FormatBool(s.Features.Notifications)})
		t.Append([]string{"activity window", strconv.FormatBool(s.Features.ActivityWindow)})
		t.Append([]string{"EPP", strconv.FormatBool(s.Features.PreferenceControl)})
		t.Append([]string{"package control", strconv.FormatBool(s.Features.PackageControl)})
		if msrDevice {
			t.Append([]string{"msr device", "present"})
		} else {
			t.Append([]string{"msr device", "missing, is the msr kernel module loaded?"})
		}
		t.Render()
		return nil
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable autonomous P-state selection on CPUs, without a daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := sysfs.DiscoverSystem()
		if err != nil {
			return err
		}
		mgr, err := hwp.NewManager(hwp.Discover(hwp.WithDriverProbe(sys)), hwp.WithClockRate(sys))
		if err != nil {
			return err
		}

		cpus, err := hwp.SelectCPUs(sys.OnlineCPUs())
		if cpuFlag != "" {
			cpus, err = parseCPUs(cpuFlag)
		}
		if err != nil {
			return err
		}

		attachErr := mgr.Attach(cpus...)
		if cmd.Flags().Changed("epp") {
			for _, cpu := range mgr.Cores() {
				if err := mgr.SetEPP(cpu, eppFlag); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "CPU #%d: %v\n", cpu, err)
				}
			}
		}

		cores := make([]hwp.CoreStatus, 0, len(cpus))
		for _, cpu := range mgr.Cores() {
			cores = append(cores, mgr.Core(cpu).Status())
		}
		if jsonFlag {
			if err := printJSON(cmd.OutOrStdout(), cores); err != nil {
				return err
			}
		} else {
			printCores(cmd.OutOrStdout(), cores)
		}

		return attachErr
	},
}

// msrAvailable checks if the msr device of the first online CPU exists.
func msrAvailable(sys *sysfs.System) bool {
	online := sys.OnlineCPUs().SortedMembers()
	if len(online) == 0 {
		return false
	}
	return msr.Available(int(online[0]))
}

// parseCPUs parses a CPU list into sorted CPU ids.
func parseCPUs(list string) ([]int, error) {
	ids, err := sysfs.ParseCPUList(list)
	if err != nil {
		return nil, err
	}
	cpus := []int{}
	for _, id := range ids.SortedMembers() {
		cpus = append(cpus, int(id))
	}
	return cpus, nil
}

func printCores(w io.Writer, cores []hwp.CoreStatus) {
	t := newTable(w, "CPU", "State", "Highest", "Guaranteed", "Efficient", "Lowest",
		"Min", "Max", "EPP", "Error")
	for _, c := range cores {
		t.Append([]string{
			strconv.Itoa(c.CPU),
			c.State.String(),
			strconv.Itoa(int(c.Levels.Highest)),
			strconv.Itoa(int(c.Levels.Guaranteed)),
			strconv.Itoa(int(c.Levels.Efficient)),
			strconv.Itoa(int(c.Levels.Lowest)),
			strconv.Itoa(int(c.Request.Min())),
			strconv.Itoa(int(c.Request.Max())),
			strconv.Itoa(hwp.RawToPercent(c.Request.EPP())) + "%",
			c.Error,
		})
	}
	t.Render()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func printJSON(w io.Writer, obj interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(obj)
}

func init() {
	enableCmd.Flags().IntVar(&eppFlag, "epp", 0, "energy/performance preference to set, 0-100")
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(enableCmd)
}
