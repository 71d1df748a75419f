package main

import "reunion-countdown/cmd"

func main() {
	cmd.Run()
}
