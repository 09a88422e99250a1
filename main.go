package main

import "github.com/khanhnv2901/secakit/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
