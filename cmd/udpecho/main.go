//go:build linux || darwin

// Command udpecho runs a framed UDP echo server and a client to talk to it.
package main

func main() {
	Execute()
}
