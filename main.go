package main

import (
	"context"

	"github.com/caretech-ops/fleetsweep/cmd"
)

func main() {
	cmd.Execute(context.Background())
}
