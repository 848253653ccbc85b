package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()
	os.Exit(Execute())
}
