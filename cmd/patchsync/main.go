package main

import "github.com/aweris/patchsync/cmd/patchsync/cmd"

func main() {
	cmd.Execute()
}
