package main

import "github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/cmd"

func main() {
	cmd.Execute()
}
