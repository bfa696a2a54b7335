package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┬┐┌─┐┌┬┐┌─┐┬ ┬┌┬┐┌─┐┌┬┐┬┌─┐
  │││├─┤ │ │  ├─┤│││├┤  │││├─┤
  ┴ ┴┴ ┴ ┴ └─┘┴ ┴┴ ┴└─┘─┴┘┴┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "matchmedia",
		Short: "Reactive media queries for server-driven Go UIs",
		Long: `Matchmedia is a server-driven reactive media-query engine.

Components run on the server and read the client's viewport and media
preferences through a synchronous external-store protocol; a thin
JavaScript client mirrors the browser environment over a binary
WebSocket protocol. Features include:

  • Live media query evaluation on the server
  • Automatic re-render when a query result flips
  • Session resume across reconnects
  • Prometheus metrics and OpenTelemetry tracing
  • < 8KB JavaScript client`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		serveCmd(),
		evalCmd(),
		checkCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
