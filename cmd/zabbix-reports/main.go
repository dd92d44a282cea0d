// Package main is the entry point for the zabbix-reports CLI tool.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/akmatori/zabbix-reports/cmd/zabbix-reports/cmd"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
