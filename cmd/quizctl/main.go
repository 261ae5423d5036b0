package main

import "github.com/mcoot/quizgame/internal/cli"

func main() {
	cli.Execute()
}
