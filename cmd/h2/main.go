package main

import (
	"github.com/jrasky/half2/cmd/h2/cmd"
)

func main() {
	cmd.Execute()
}
