package main

import "github.com/DomeenoH/MuMuAINovel/cmd"

func main() {
	cmd.Execute()
}
