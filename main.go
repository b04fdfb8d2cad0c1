package main

import "github.com/bioforge/fmap/cmd"

func main() {
	cmd.Execute()
}
