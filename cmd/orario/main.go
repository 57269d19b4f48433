// Command orario answers "where is this class right now" from a school's
// published timetable, over Telegram, HTTP or the command line.
package main

import (
	"os"

	// Europe/Rome must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
