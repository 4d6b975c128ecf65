package main

import "github.com/fastly/js-compute-runtime-sub002/cli/cmd"

func main() {
	cmd.Execute()
}
