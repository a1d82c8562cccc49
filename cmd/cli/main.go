package main

import (
	"os"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
