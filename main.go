package main

import "economy-ledger/cmd"

func main() {
	cmd.Execute()
}
