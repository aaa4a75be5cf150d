// Command vidshare runs the video sharing API and its maintenance tasks.
//
// Usage:
//
//	vidshare serve
//	vidshare migrate [up|status]
//	vidshare seed <name>
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vidshare/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "vidshare:", err)
		os.Exit(1)
	}
}
