package main

import "github.com/philipparndt/gflabels/internal/cmd"

func main() {
	cmd.Parse()
}
