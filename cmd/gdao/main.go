// Command gdao reads, writes and queries one SQL table from the shell.
package main

import "github.com/mesh-intelligence/gdao/internal/cli"

func main() {
	cli.Execute()
}
