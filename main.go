package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"yashubustudio/readerstudy/internal/app"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", os.Getenv("READERSTUDY_CONFIG"), "Path to readerstudy.yaml (default: ./readerstudy.yaml)")
	flag.Parse()
	if err := app.Run(*configPath); err != nil {
		log.Fatalf("readerstudy: %v", err)
	}
}
