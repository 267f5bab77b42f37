package main

import (
	"log"
	"os"

	"github.com/intakehq/threadlink/cmd/threadlinkd/daemon"
)

func main() {
	if err := daemon.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
