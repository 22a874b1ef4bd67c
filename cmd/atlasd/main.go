// Command atlasd runs the Atlas UI interaction graph API server.
package main

import (
	"log"
	"os"

	"atlasgraph.dev/atlas/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
