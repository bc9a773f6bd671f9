// Command taskmesh runs YAML-defined jobs of LLM tasks from the command line.
//
//	taskmesh run job.yaml --input "Go generics"
//	taskmesh validate job.yaml
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
