// Package common provides helpers shared by the MCP tool packages:
// handler instrumentation and argument parsing.
package common
