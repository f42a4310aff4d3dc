// chatclean - Chat Transcript Cleaner
//
// chatclean turns exported group-chat transcripts into ordered, structured
// messages, either from files on disk or over an HTTP upload endpoint.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/ccollicutt/chatclean/internal/cli"
)

func main() {
	// A missing .env is fine; environment variables still apply.
	_ = godotenv.Load(".env")
	os.Exit(cli.Execute())
}
