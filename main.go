package main

import "hooksync/internal/cmd"

func main() {
	cmd.Execute()
}
