package main

import "github.com/f5devkit/as3ctl/cmd/as3ctl/cmd"

func main() {
	cmd.Execute()
}
