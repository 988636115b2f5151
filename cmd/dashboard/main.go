// Package main provides the entry point for the dashboard gateway.
package main

func main() {
	Execute()
}
