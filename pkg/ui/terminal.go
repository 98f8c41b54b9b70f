package ui

import (
	"fmt"
	"io"
	"os"
)

// Banner is printed once when an interactive crawl starts
const Banner = `
  __            __                 _ _
 / _| __ _ _ __/ _| ___  _   _  __| | |
| |_ / _' | '_ \ |_ / _ \| | | |/ _' | |
|  _| (_| | | | |  _| (_) | |_| | (_| | |
|_|  \__,_|_| |_|_|  \___/ \__,_|\__,_|_|
          album downloader
`

// Out is where the Print helpers write
var Out io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

func PrintBanner() {
	fmt.Fprint(Out, Cyan(Banner))
}

// PrintError prints msg in red, followed by the error when one is given
func PrintError(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(Out, Red(msg))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(msg string) {
	fmt.Fprintln(Out, Yellow(msg))
}

func PrintHighlight(msg string) {
	fmt.Fprintln(Out, Magenta(msg))
}
