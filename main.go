// main is the entry point of the pj CLI.
package main

import (
	"os"

	"github.com/huangsam/pj/cmd"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("pj failed", err)
	}
}
