// Command mstate inspects and manages save states, slot files and resume
// archives outside of a running emulator.
package main

import "os"

func main() {
	app := App()

	if err := app.Run(os.Args); err != nil {
		PrintError("%v", err)
		os.Exit(1)
	}
}
