package main

import (
	"os"

	"github.com/gofiber/fiber/v2/log"

	"github.com/meinhoongagan/tutor-sessions/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
