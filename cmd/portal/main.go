// Command portal is the reference CLI front-end over pkg/engine:
// "init"/"build"/"run"/"version".
package main

import (
	"os"

	"github.com/portal-lang/portal/cmd/portal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
