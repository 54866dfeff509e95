package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/pkg/embeddings"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

// EmbedCmd learns node2vec vectors and stores them in an embedding file.
var EmbedCmd = &cobra.Command{
	Use:   "embed <edges.csv>",
	Short: "Embed an edge list and write the vectors to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := cmd.Flags()
		out, _ := fs.GetString("out")

		precision, err := cfg.Embedding.PrecisionValue()
		if err != nil {
			return err
		}
		if fs.Changed("precision") {
			value, _ := fs.GetString("precision")
			if precision, err = persistence.ParsePrecision(value); err != nil {
				return err
			}
		}

		n2v, err := node2vecFromFlags(cmd)
		if err != nil {
			return err
		}
		g, err := loadGraph(cmd, args[0])
		if err != nil {
			return err
		}
		space, err := n2v.Embed(cmd.Context(), g)
		if err != nil {
			return err
		}
		if err := embeddings.Save(out, space, precision); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d vectors of %d dimensions to %s (%s)\n",
			space.Len(), space.Dim(), out, precision)
		return nil
	},
}

func init() {
	fs := EmbedCmd.Flags()
	fs.StringP("out", "o", "", "Embedding file to write")
	fs.String("precision", "", "float64, float32 or float16 (default from config)")
	_ = EmbedCmd.MarkFlagRequired("out")
	addInputFlags(fs)
	addNode2VecFlags(fs)
}
