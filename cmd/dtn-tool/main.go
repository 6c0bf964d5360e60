// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// dtn-tool is a collection of utilities to work with Bundles and a dtnd.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// printFatal prints the error with a description and exits afterwards.
func printFatal(err error, msg string) {
	log.WithError(err).Fatal(msg)
}

// printUsage of dtn-tool and exit with an error code afterwards.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s create|exchange|ping|show:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s create sender receiver -|filename [-|bundle-name]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Creates a new Bundle, addressed from sender to receiver, with the stdin (-)\n")
	_, _ = fmt.Fprintf(os.Stderr, "  or the given file (filename) as payload. If no bundle-name is given, the\n")
	_, _ = fmt.Fprintf(os.Stderr, "  hex representation of the Bundle ID will be used. A bundle-name of - prints\n")
	_, _ = fmt.Fprintf(os.Stderr, "  the Bundle to the stdout.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s exchange websocket endpoint-id directory\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  %s registers itself as an agent on the given websocket and writes\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  incoming Bundles in the directory. If the user drops a new Bundle in the\n")
	_, _ = fmt.Fprintf(os.Stderr, "  directory, it will be sent to the server.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s ping websocket sender receiver\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Sends continuously ping Bundles over the websocket to the receiver.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s show -|filename\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Prints a human-readable version of the given Bundle.\n\n")

	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
	}

	switch os.Args[1] {
	case "create":
		createBundle(os.Args[2:])

	case "exchange":
		startExchange(os.Args[2:])

	case "ping":
		ping(os.Args[2:])

	case "show":
		showBundle(os.Args[2:])

	default:
		printUsage()
	}
}
