package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hfi/waypoint/internal/service"
)

var envFormats = map[string]func(io.Writer, service.EnvState) error{
	"sh":   writeShellEnv,
	"json": writeJSONEnv,
}

// writeShellEnv prints export statements; absent entries are unset so stale
// values from an earlier eval do not linger
func writeShellEnv(w io.Writer, env service.EnvState) error {
	vars := []struct {
		name  string
		value string
	}{
		{"WAYPOINT_CURRENT", env.Current},
		{"WAYPOINT_PREVIOUS", env.Previous},
		{"WAYPOINT_NEXT", env.Next},
	}

	for _, v := range vars {
		var err error
		if v.value == "" {
			_, err = fmt.Fprintf(w, "unset %s\n", v.name)
		} else {
			_, err = fmt.Fprintf(w, "export %s=%s\n", v.name, shellQuote(v.value))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeJSONEnv(w io.Writer, env service.EnvState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Current  string `json:"current,omitempty"`
		Previous string `json:"previous,omitempty"`
		Next     string `json:"next,omitempty"`
	}{env.Current, env.Previous, env.Next})
}

// shellQuote wraps s in single quotes for POSIX shells
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
