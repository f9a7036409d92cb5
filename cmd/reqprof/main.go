// Package main provides the entry point for the reqprof CLI.
//
// reqprof is a minimal HTTP(S) diagnostic client. It sends a raw GET
// request and prints the response, or repeats the request and reports
// latency, outcome and response-size statistics.
//
// Usage:
//
//	reqprof --url https://example.com/
//	reqprof --url example.com/get --profile 20
//
// See --help for all available options.
package main

// main is the entry point for reqprof.
func main() {
	Execute()
}
