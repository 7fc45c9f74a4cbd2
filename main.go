package main

import (
	"github.com/ulyfm/HLA-Pipeline/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
