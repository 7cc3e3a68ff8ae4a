package main

import (
	"os"

	"readsy_backend/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewDefaultReadsyCtlCommand()))
}
