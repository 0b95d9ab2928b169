// Package flagx contains small helpers for components that parse only
// their own subset of command-line flags and environment variables.
package flagx

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FilterArgs keeps only the allowed flags (and their values) from args.
//
// Recognised forms:
//
//	-k value
//	-k=value
//
// A value is taken from the next argument only when that argument does not
// itself start with "-". The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag extracts the JSON config path given via -c or -config.
// Other arguments are ignored. An empty string means no file was requested.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}

// LookupEnvBool is LookupEnv for boolean variables. A value that
// strconv.ParseBool rejects is an error naming the variable.
func LookupEnvBool(dst *bool, key string) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return true, nil
}

// LookupEnv overwrites *dst with the value of the environment variable key
// when it is set and non-empty. It reports whether *dst was changed.
func LookupEnv(dst *string, key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false
	}
	*dst = v
	return true
}
