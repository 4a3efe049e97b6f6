package main

import "github.com/KaramelBytes/covidlens-cli/cmd"

func main() {
	cmd.Execute()
}
