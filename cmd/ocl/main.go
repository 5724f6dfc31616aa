package main

import "github.com/OpenTraceLab/OpenTraceOCL/cmd/ocl/cmd"

func main() {
	cmd.Execute()
}
