// Command datamodeler runs the data modeling dashboard backend.
package main

import (
	"os"

	"github.com/koustreak/datamodeler/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
