package main

import (
	"flag"
	"log"

	"github.com/danmuck/zwavectl/internal/config"
)

const defaultPath = "cmd/zwavectl/config.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for the config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if _, err := config.Load(*input); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated zwavectl config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote zwavectl config template to %s", *output)
}
