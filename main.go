package main

import (
	"github.com/carusyte/stockchart/cmd"
)

func main() {
	cmd.Execute()
}
