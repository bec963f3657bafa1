// capmatch matches requirements against the capabilities declared in
// resource manifests.
package main

import (
	"os"

	"github.com/hupe1980/capmatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
