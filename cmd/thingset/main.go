// Command thingset reads and writes objects on a ThingSet node over a serial
// port or a TCP socket.
package main

func main() {
	Execute()
}
