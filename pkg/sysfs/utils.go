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

package sysfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	idset "github.com/intel/goresctrl/pkg/utils"
)

const (
	// Unknown represents an unknown id.
	Unknown idset.ID = -1
)

// Get the trailing enumeration part of a name.
func getEnumeratedID(name string) idset.ID {
	id := 0
	base := 1
	for idx := len(name) - 1; idx > 0; idx-- {
		d := name[idx]

		if '0' <= d && d <= '9' {
			id += base * (int(d) - '0')
			base *= 10
		} else {
			if base > 1 {
				return idset.ID(id)
			}

			return Unknown
		}
	}

	return Unknown
}

// Read content of a sysfs entry and convert it according to the type of a given pointer.
func readSysfsEntry(base, entry string, ptr interface{}, args ...interface{}) (string, error) {
	path := filepath.Join(base, entry)

	blob, err := os.ReadFile(path)
	if err != nil {
		return "", sysfsError(path, "failed to read sysfs entry: %v", err)
	}
	buf := strings.TrimSpace(string(blob))

	if ptr == nil {
		return buf, nil
	}

	switch ptr.(type) {
	case *string, *int, *uint, *int64, *uint64:
		if err := parseValue(buf, ptr); err != nil {
			return "", sysfsError(path, "%v", err)
		}
		return buf, nil

	case *idset.IDSet, *[]int:
		sep, err := getSeparator(" ", args)
		if err != nil {
			return "", sysfsError(path, "%v", err)
		}
		if err = parseValueList(buf, sep, ptr); err != nil {
			return "", sysfsError(path, "%v", err)
		}
		return buf, nil
	}

	return "", sysfsError(path, "unsupported sysfs entry type %T", ptr)
}

// Determine list separator string, given an optional separator variadic argument.
func getSeparator(defaultVal string, args []interface{}) (string, error) {
	switch len(args) {
	case 0:
		return defaultVal, nil
	case 1:
		return args[0].(string), nil
	}

	return "", fmt.Errorf("invalid separator (%v), 1 expected, %d given", args, len(args))
}

// Parse a value from a string.
func parseValue(str string, value interface{}) error {
	switch ptr := value.(type) {
	case *string:
		*ptr = str

	case *int, *int64:
		v, err := strconv.ParseInt(str, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid entry '%s': %v", str, err)
		}
		if p, ok := value.(*int); ok {
			*p = int(v)
		} else {
			*value.(*int64) = v
		}

	case *uint, *uint64:
		v, err := strconv.ParseUint(str, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid entry '%s': %v", str, err)
		}
		if p, ok := value.(*uint); ok {
			*p = uint(v)
		} else {
			*value.(*uint64) = v
		}

	default:
		return fmt.Errorf("invalid value type %T", value)
	}

	return nil
}

// Parse a list of values, with optional ranges for id sets, from a string.
func parseValueList(str, sep string, valuep interface{}) error {
	ids := idset.NewIDSet()
	list := []int{}

	for _, s := range strings.Split(str, sep) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		beg, end := s, s
		if rng := strings.Split(s, "-"); len(rng) == 2 {
			beg, end = rng[0], rng[1]
		}
		b, err := strconv.Atoi(beg)
		if err != nil {
			return fmt.Errorf("invalid entry '%s': %v", s, err)
		}
		e, err := strconv.Atoi(end)
		if err != nil {
			return fmt.Errorf("invalid entry '%s': %v", s, err)
		}
		if e < b {
			return fmt.Errorf("invalid range '%s'", s)
		}

		for id := b; id <= e; id++ {
			ids.Add(idset.ID(id))
			list = append(list, id)
		}
	}

	switch ptr := valuep.(type) {
	case *idset.IDSet:
		*ptr = ids
	case *[]int:
		*ptr = list
	default:
		return fmt.Errorf("invalid slice value type: %T", valuep)
	}

	return nil
}

// ParseCPUList parses a kernel-style CPU list, like "0-3,8,10-11".
func ParseCPUList(str string) (idset.IDSet, error) {
	ids := idset.NewIDSet()
	if err := parseValueList(str, ",", &ids); err != nil {
		return nil, sysfsError("<cpulist>", "%v", err)
	}
	return ids, nil
}

// readCPUInfoMHz reads the 'cpu MHz' entry of the given processor from procfs cpuinfo.
func readCPUInfoMHz(path string, id int) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, sysfsError(path, "failed to open: %v", err)
	}
	defer f.Close()

	processor := -1
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := pickCPUInfoEntry(scanner.Text())
		if !ok {
			continue
		}
		switch key {
		case "processor":
			if processor, err = strconv.Atoi(value); err != nil {
				return 0, sysfsError(path, "invalid processor entry '%s'", value)
			}
		case "cpu MHz":
			if processor != id {
				continue
			}
			mhz, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return 0, sysfsError(path, "invalid cpu MHz entry '%s'", value)
			}
			return mhz, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, sysfsError(path, "failed to read: %v", err)
	}

	return 0, sysfsError(path, "no clock rate for CPU #%d", id)
}

// pickCPUInfoEntry splits a "key : value" line of cpuinfo.
func pickCPUInfoEntry(line string) (string, string, bool) {
	split := strings.SplitN(line, ":", 2)
	if len(split) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(split[0]), strings.TrimSpace(split[1]), true
}

// sysfsError returns a formatted error for a sysfs path.
func sysfsError(path, format string, args ...interface{}) error {
	return fmt.Errorf("sysfs: "+path+": "+format, args...)
}
