package main

import "campaignforge/cmd/campaignctl/cmd"

func main() {
	cmd.Execute()
}
