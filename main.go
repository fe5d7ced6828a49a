package main

import (
	"github.com/spatialmeet/cli/cmd"
	"github.com/spatialmeet/cli/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
