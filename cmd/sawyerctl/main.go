package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Run     RunCommand     `command:"run" description:"Launch a training run"`
	Monitor MonitorCommand `command:"monitor" description:"Live joint-angle chart"`
	Reset   ResetCommand   `command:"reset" description:"Move the arm to its start configuration"`
	Check   CheckCommand   `command:"check" description:"Ask the validity service about the current state"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "sawyerctl - Sawyer arm control and training CLI"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
