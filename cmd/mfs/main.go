package main

import "github.com/absfs/mfs/cmd/mfs/cmd"

func main() {
	cmd.Execute()
}
