// Command negcachectl is a small command-line front end for exercising
// the aggressive negative cache without a full resolver: it ingests a
// canned NXDOMAIN reply fixture and prints the synthesized
// answer, the way blocky's own cmd/query.go exercises a resolver
// chain over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the negcachectl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "negcachectl",
		Short: "negcachectl demonstrates the aggressive negative cache",
		Long: `negcachectl ingests a canned authoritative denial-of-existence
reply and then answers a query for the same name straight from the
negative cache, printing the synthesized message.`,
	}

	root.AddCommand(NewDemoCommand())

	return root
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
