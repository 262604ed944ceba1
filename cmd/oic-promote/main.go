// Command oic-promote moves Oracle Integration Cloud integration
// archives between environments (DEV, TEST, PROD) and applies the
// per-environment connection configuration.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
