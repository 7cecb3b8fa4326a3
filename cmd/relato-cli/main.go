package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// Version is set at build time
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	cli := &CLI{
		BaseURL: getEnv("RELATO_URL", "http://localhost:4466"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}

	var err error
	switch cmd {
	case "tuple", "tuples":
		err = cli.tupleCommand(args)
	case "check":
		err = cli.checkCommand(args)
	case "expand":
		err = cli.expandCommand(args)
	case "audit":
		err = cli.auditCommand(args)
	case "health":
		err = cli.healthCommand(args)
	case "version":
		fmt.Println("relato-cli", Version)
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`relato-cli - administer a Relato authorization server

Usage:
  relato-cli tuple write --namespace=... --object=... --relation=... (--subject-id=... | --subject-set=ns:obj#rel)
  relato-cli tuple delete --namespace=... [--object=...] [--relation=...] [--subject-id=...]
  relato-cli tuple list --namespace=... [--object=...] [--relation=...]
  relato-cli check --namespace=... --object=... --relation=... --subject-id=... [--max-depth=N]
  relato-cli expand --namespace=... --object=... --relation=... [--max-depth=N]
  relato-cli audit [--limit=N]
  relato-cli health [alive|ready|full]
  relato-cli version

Environment:
  RELATO_URL   server base URL (default http://localhost:4466)`)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
