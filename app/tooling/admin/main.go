// This program performs administrative tasks against the ledger storage.
package main

import "github.com/ardanlabs/servicechain/app/tooling/admin/cmd"

func main() {
	cmd.Execute()
}
