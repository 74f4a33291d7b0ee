// Command storjctl transfers objects to and from a Storj bucket.
package main

import (
	"fmt"
	"os"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
)

func main() {
	app := newApp(billy.NewOSFS("/"), os.Stdout, os.Stderr)
	if err := app.rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch errors.CodeOf(err) {
	case "":
		return 0
	case errors.CodeInvalidInput:
		return 2
	case errors.CodeNotFound:
		return 3
	case errors.CodeIntegrity:
		return 4
	case errors.CodeTruncated:
		return 5
	case errors.CodeNotImplemented:
		return 6
	default:
		return 1
	}
}
