package main

import "github.com/Norgate-AV/extpack/cmd"

func main() {
	cmd.Execute()
}
