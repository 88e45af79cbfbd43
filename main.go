package main

import "github.com/wildventure-hub/ms-go-checkout/cmd"

func main() {
	cmd.Execute()
}
