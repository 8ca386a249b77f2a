// This program talks to a running node to record and inspect services.
package main

import "github.com/ardanlabs/servicechain/app/tooling/client/cmd"

func main() {
	cmd.Execute()
}
