package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/swarmhive/swarmhive/internal/errs"
)

// Exit codes (spec §6).
const (
	exitOK         = 0
	exitGeneric    = 1
	exitValidation = 2
	exitConflict   = 3
	exitNotFound   = 4
	exitIO         = 5
)

func operationReadonly(operation string) error {
	return errs.New("hivectl."+operation, errs.ErrValidation, "operation is not allowed in --readonly mode")
}

func errBadTTL(raw string) error {
	return errs.New("hivectl.parseTTLSeconds", errs.ErrValidation,
		fmt.Sprintf("could not parse %q as a duration or a future time", raw))
}

// exitCodeFor maps the errs taxonomy onto the spec's process exit codes.
// Errors that never passed through errs (flag parsing, I/O outside the
// session) fall back to exitGeneric.
func exitCodeFor(err error) int {
	switch {
	case errs.Is(err, errs.ErrValidation):
		return exitValidation
	case errs.Is(err, errs.ErrConflict):
		return exitConflict
	case errs.Is(err, errs.ErrNotFound):
		return exitNotFound
	case errs.Is(err, errs.ErrProjection), errs.Is(err, errs.ErrIO):
		return exitIO
	default:
		return exitGeneric
	}
}

// reportAndExitCode prints err the way --json expects and returns the
// matching process exit code.
func reportAndExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	printError(err)
	return exitCodeFor(err)
}

func printError(err error) {
	if jsonOutput {
		payload := map[string]string{"error": err.Error()}
		var op *errs.Op
		if errors.As(err, &op) {
			payload["operation"] = op.Name
		}
		data, marshalErr := json.MarshalIndent(payload, "", "  ")
		if marshalErr == nil {
			fmt.Println(string(data))
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// fatal reports err and terminates the process immediately. Commands that
// can return an error to cobra should prefer returning it instead; fatal is
// for guard checks (such as requireWrite) invoked before a command's Run can
// produce a normal error return.
func fatal(err error) {
	printError(err)
	os.Exit(exitCodeFor(err))
}
