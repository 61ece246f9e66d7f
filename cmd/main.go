package main

import (
	"log"
	"os"

	"quiz-journey/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("quiz-journey: %v", err)
		os.Exit(1)
	}
}
