// Command sitechat is the entry point for the site chat backend. It serves
// a static frontend, a retrieval-augmented /chat endpoint, and a contact
// form over HTTP, and exposes a small CLI (via Cobra) for one-shot questions.
package main

import (
	"fmt"
	"os"

	"github.com/quillhaven/sitechat/cmd/sitechat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
