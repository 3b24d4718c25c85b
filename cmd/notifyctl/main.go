// Command notifyctl runs maintenance tasks of the notification engine:
// migrations, one-shot reminder sweeps for cron, per-task scheduling and
// service token issuing.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	_ "time/tzdata"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
