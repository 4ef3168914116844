package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirkdrichardson/jackc/internal/driver"
	"github.com/kirkdrichardson/jackc/internal/tokenizer"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <file.jack>",
	Short: "Print the classified token stream for a single file",
	Long: `tokens runs only the tokenizer, printing one "<kind> <text>" line
per token. Useful for diagnosing lexical issues independently of full
compilation.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(command *cobra.Command, args []string) error {
	path := args[0]
	source, err := driver.ReadSource(path)
	if err != nil {
		return err
	}

	t := tokenizer.New(source)
	out := command.OutOrStdout()
	for t.Scan() {
		tok := t.Token()
		fmt.Fprintf(out, "%s %s\n", tok.Kind, tok.Text)
	}
	if err := t.Err(); err != nil {
		return err
	}
	return nil
}
