/*
main.go - Application entry point

PURPOSE:
  Command-line front end of the incentive engine. Every subcommand loads the
  same configuration and wires the same components; they differ only in what
  they drive.

COMMANDS:
  server          Serve the HTTP API (and the cron sync when enabled)
  sync            Run one sync against the contract source and exit
  import <file>   Normalize and apply a JSON array of raw contracts

GLOBAL FLAGS:
  --config   YAML config path (default: incentive.yaml, optional)
  --db       SQLite database path, overrides config and INCENTIVE_DB
             Use ":memory:" for an in-memory database

EXAMPLES:
  # Serve with a file database
  incentive server --db ./data/incentive.db

  # One-off sync with credentials from the environment
  INCENTIVE_SOURCE_URL=https://crm.example.com/contratos incentive sync

  # Load a CRM export
  incentive import export.json

SEE ALSO:
  - config/config.go: Settings and environment overrides
  - api/server.go: Router configuration
*/
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
