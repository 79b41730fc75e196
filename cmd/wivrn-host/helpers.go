package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

func parseIntArg(arg string, valueName string) (int32, error) {
	value, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}
	return int32(value), nil
}

func parseIntArgs(args []string, valueName string) ([]int32, error) {
	out := make([]int32, 0, len(args))
	for _, a := range args {
		v, err := parseIntArg(a, valueName)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseExtras turns key=value pairs into intent extras. Values that parse
// as integers or booleans keep that type; everything else is a string.
func parseExtras(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extras := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid extra %q, want key=value", p)
		}
		if i, err := strconv.ParseInt(v, 10, 32); err == nil {
			extras[k] = int32(i)
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil {
			extras[k] = b
			continue
		}
		extras[k] = v
	}
	return extras, nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
