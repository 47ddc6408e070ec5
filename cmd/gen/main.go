// Command gen compiles, plays and serves Gen scores.
package main

func main() {
	Execute()
}
