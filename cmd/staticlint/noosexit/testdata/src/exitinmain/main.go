package main

import (
	"os"
	sys "os"
)

func shutdown() {
	os.Exit(2)
}

func main() {
	defer shutdown()

	os.Exit(1)  // want "avoid using os.Exit in main.main"
	sys.Exit(1) // want "avoid using os.Exit in main.main"

	func() {
		os.Exit(3) // want "avoid using os.Exit in main.main"
	}()
}
