package main

import (
	"fmt"
	"sort"
	"strings"
)

// powerAction is a WEBVAR_POWER_CMD / WEBVAR_FORCE_BIOS pair.
type powerAction struct {
	power   int
	bios    int
	summary string
}

var powerActions = map[string]powerAction{
	"power-off":  {power: 0, bios: 0, summary: "turn the host off immediately"},
	"power-on":   {power: 1, bios: 0, summary: "turn the host on"},
	"reset":      {power: 3, bios: 0, summary: "hard reset the host"},
	"reset-bios": {power: 3, bios: 1, summary: "reset the host into BIOS setup"},
	"shutdown":   {power: 5, bios: 0, summary: "ask the host OS to shut down"},
}

func actionHelp() string {
	names := make([]string, 0, len(powerActions))
	for name := range powerActions {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %-12s %s\n", name, powerActions[name].summary)
	}
	return b.String()
}
