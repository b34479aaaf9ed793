package main

import "github.com/oshokin/pavr2-macos-builder/cmd/pavr2-macos-builder/cmd"

func main() {
	cmd.Execute()
}
