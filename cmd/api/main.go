package main

import (
	"fmt"
	"os"

	"github.com/PauloHFS/faceauth/internal/cmd"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	if len(os.Args) < 2 {
		cmd.RunServer()
		return
	}

	switch os.Args[1] {
	case "server":
		cmd.RunServer()
	case "seed":
		cmd.RunSeed()
	case "migrate":
		cmd.RunMigrate()
	case "create-user":
		cmd.RunCreateUser()
	case "verify":
		cmd.RunVerify()
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("faceauth - Single Binary Console")
	fmt.Println("Usage: ./faceauth [command] [args]")
	fmt.Println("\nAvailable commands:")
	fmt.Println("  server       Start the API server (default)")
	fmt.Println("  migrate      Run database migrations")
	fmt.Println("  seed         Run migrations and create the admin account")
	fmt.Println("  create-user  Register a user (args: <username> <email> <password> <face-image>)")
	fmt.Println("  verify       Compare two images with the configured profiles (args: <reference> <probe>)")
	fmt.Println("  help         Show this help message")
}
