// The main package for the ozwatch executable.
package main

import "github.com/ozwatch/ozwatch/cmd"

func main() {
	cmd.Execute()
}
