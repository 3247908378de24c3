package main

import "github.com/ehsanMa86/OpenFOAM-dev/cmd"

func main() {
	cmd.Execute()
}
