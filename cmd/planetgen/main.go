// planetgen is a CLI for generating, baking and streaming LOD planets.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a subcommand.
func run(command string, args []string) error {
	switch command {
	case "bake":
		return cmdBake(args)
	case "inspect", "info":
		return cmdInspect(args)
	case "sample":
		return cmdSample(args)
	case "presets":
		return cmdPresets(args)
	case "config":
		return cmdConfig(args)
	case "cache":
		return cmdCache(args)
	case "serve":
		return cmdServe(args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println(`planetgen - procedural LOD planet generator

Usage:
  planetgen <command> [options]

Commands:
  bake [-o file] [-viewer x,y,z ...] [-orbit n]
                                       Refine around viewers and write a bake file
  inspect <file.bake>                  Show bake header and chunk counts
  sample -lat deg -lon deg [-json]     Evaluate the surface at a coordinate
  presets                              List built-in planet presets
  config [-o file]                     Print or write the effective config
  cache [-prune]                       Show mesh cache totals, drop stale entries
  serve [-addr host:port]              Run the websocket chunk stream

Shared options:
  -config file   -preset name   -seed n   -radius r   -workers n
  -resolution n  -max-lod n     -normalization local|global
  -cache file    -no-cache      -debug    -log-file file

Examples:
  planetgen bake -preset moon -viewer 0,300,0 -o moon.bake
  planetgen inspect moon.bake
  planetgen sample -preset earth -lat 45 -lon 10
  planetgen serve -addr :8765 -cache ./meshes.db`)
}
