package main

import "github.com/trobanga/spittal/cmd"

func main() {
	cmd.Execute()
}
