// Package util holds small parsing helpers shared by config and engines.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// mibPerUnit maps a memory unit suffix to its size in MiB. Decimal and
// binary spellings are treated alike, as docker does.
var mibPerUnit = map[string]float64{
	"B": 1.0 / (1 << 20),
	"K": 1.0 / (1 << 10),
	"M": 1,
	"G": 1 << 10,
	"T": 1 << 20,
}

// ParseMemory converts a limit such as "2G" or "512Mi" to whole MiB. An
// empty string means no limit and yields 0. The unit is required.
func ParseMemory(memory string) (int, error) {
	memory = strings.TrimSpace(memory)
	if memory == "" {
		return 0, nil
	}

	split := strings.IndexFunc(memory, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
	})
	if split < 0 {
		return 0, fmt.Errorf("memory %q needs a unit (K, M, G, T)", memory)
	}
	if split == 0 {
		return 0, fmt.Errorf("invalid memory value: %s", memory)
	}

	value, err := strconv.ParseFloat(memory[:split], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value: %s", memory)
	}
	if value < 0 {
		return 0, fmt.Errorf("memory must not be negative: %s", memory)
	}

	unit := strings.ToUpper(strings.TrimSpace(memory[split:]))
	if unit != "B" {
		unit = strings.TrimSuffix(strings.TrimSuffix(unit, "B"), "I")
	}
	scale, ok := mibPerUnit[unit]
	if !ok {
		return 0, fmt.Errorf("unknown memory unit: %s", memory[split:])
	}
	return int(value * scale), nil
}
