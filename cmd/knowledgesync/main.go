package main

import (
	"os"

	"github.com/JakeFAU/knowledgesync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
