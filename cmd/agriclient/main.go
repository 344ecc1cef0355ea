// Command agriclient is the AgriConnect terminal client.
package main

import (
	"github.com/agriconnect/agriclient/cmd/agriclient/cmd"
)

func main() {
	cmd.Execute()
}
