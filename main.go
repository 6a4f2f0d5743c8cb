package main

import (
	"log"
	"os"

	"github.com/gnomegl/commitctx/internal/cli"
)

func main() {
	// only the message, no timestamps
	log.SetFlags(0)

	if err := cli.NewApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
