package main

import "github.com/kailas-cloud/skills-handbook/cmd/handbook-seed/cli"

func main() {
	cli.Execute()
}
