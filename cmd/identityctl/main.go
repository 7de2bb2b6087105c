package main

import (
	"github.com/pilab-dev/identity-mongodb/cmd/identityctl/cmd"
)

func main() {
	cmd.Execute()
}
