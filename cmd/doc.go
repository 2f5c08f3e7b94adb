// Package cmd implements the command-line interface for appointments.
//
// This package provides the following commands:
//   - serve: Start the HTTP server (default when no subcommand is given)
//   - auth: Run the Google consent flow once and store the credential
//   - auth status: Report whether a usable credential is stored
//   - auth keygen: Generate a key for encrypting the stored credential
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the HTTP API and MCP tools
//
// Configuration is layered: built-in defaults, the YAML file given by
// --config, a .env file, environment variables and finally flags that were
// set explicitly on the command line.
package cmd
