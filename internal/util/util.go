// Package util provides small string helpers shared by the command front end.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs trims whitespace and surrounding quotes from every argument in place.
func CleanArgs(args []string) []string {
	for i, a := range args {
		args[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(a)))
	}
	return args
}

// SplitCommand splits a command line such as ":TICK: 1 0 1 0 1 0" into the
// command token and its arguments. Blank lines yield an empty command.
func SplitCommand(line string) (command string, args []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToUpper(fields[0]), CleanArgs(fields[1:])
}
