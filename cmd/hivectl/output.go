package main

import (
	"encoding/json"
	"fmt"
)

// printResult renders v as pretty JSON when --json is set, otherwise via
// text, a caller-supplied plain-text renderer.
func printResult(v interface{}, text func()) {
	if jsonOutput {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(string(data))
		return
	}
	text()
}
