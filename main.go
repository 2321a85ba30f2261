package main

import (
	"github.com/bkoushik11/flight-tracking-backend/cli/cmd"
)

func main() {
	cmd.Execute()
}
