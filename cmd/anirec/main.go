// Command anirec is the CLI for the anime recommendation engine: build the
// index with `setup`, then query it with `recommend` and `info`.
package main

func main() {
	Execute()
}
