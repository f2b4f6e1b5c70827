package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Println(`starml - markup checker and formatter
Usage: starml <command> [args]

Commands:
  check [path]        Parse and expand every document under path
  fmt [-w] <file>     Print a document in canonical form, or rewrite it with -w
  expand <file>       Print a document with its templates expanded
  help                Show help`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	var err error
	switch cmd {
	case "help":
		usage()
		return
	case "check":
		path := "."
		if len(args) >= 1 {
			path = args[0]
		}
		err = check(os.Stdout, path)
	case "fmt":
		write := len(args) >= 1 && args[0] == "-w"
		if write {
			args = args[1:]
		}
		if len(args) < 1 {
			usage()
			os.Exit(1)
		}
		err = format(os.Stdout, args[0], write)
	case "expand":
		if len(args) < 1 {
			usage()
			os.Exit(1)
		}
		err = expand(os.Stdout, args[0])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("%s error:", cmd)), err)
		os.Exit(1)
	}
}
