package mnemos

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mnemosclient "github.com/mnemos-ai/mnemos"
	"github.com/mnemos-ai/mnemos/pkg/config"
	"github.com/mnemos-ai/mnemos/pkg/logger"
	"github.com/mnemos-ai/mnemos/pkg/types"
)

var (
	addType       string
	addUserSaid   string
	addConfidence float64
	queryLimit    int
	querySubgraph bool
)

func init() {
	rootCmd.AddCommand(addCmd, queryCmd, approveCmd, clarifyCmd, linkCmd, unlinkCmd, conflictsCmd, orphansCmd, deleteCmd, statsCmd)

	addCmd.Flags().StringVar(&addType, "type", "fact", "node type (decision, fact, error, guide, glossary, context, assumption)")
	addCmd.Flags().StringVar(&addUserSaid, "user-said", "", "verbatim statement that prompted this knowledge")
	addCmd.Flags().Float64Var(&addConfidence, "confidence", -1, "asserted confidence in [0.0, 0.99]")

	queryCmd.Flags().IntVar(&queryLimit, "limit", 10, "maximum results")
	queryCmd.Flags().BoolVar(&querySubgraph, "subgraph", false, "include the 1-hop neighborhood of each result")
	queryCmd.Flags().Bool("include-superseded", false, "include superseded nodes in results")
	viper.BindPFlag("query.include_superseded", queryCmd.Flags().Lookup("include-superseded"))
}

// openClient assembles a Client from the loaded configuration.
func openClient(cmd *cobra.Command) (*mnemosclient.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	return mnemosclient.Open(cmd.Context(), cfg, log)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var addCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Record a new unit of knowledge",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		req := mnemosclient.AddNodeRequest{
			Type:     types.NodeType(addType),
			Content:  strings.Join(args, " "),
			UserSaid: addUserSaid,
		}
		if addConfidence >= 0 {
			c := addConfidence
			req.Confidence = &c
		}
		node, err := client.AddNode(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(node)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask what the store knows relevant to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		question := strings.Join(args, " ")
		if querySubgraph {
			sub, err := client.Subgraph(cmd.Context(), question, queryLimit)
			if err != nil {
				return err
			}
			return printJSON(sub)
		}
		results, err := client.Query(cmd.Context(), question, queryLimit)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve [node-id]",
	Short: "Approve a node, setting its confidence to 1.0",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Approve(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("approved", args[0])
		return nil
	},
}

var clarifyCmd = &cobra.Command{
	Use:   "clarify [node-id] [question]",
	Short: "Flag a node as needing human input",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		question := strings.Join(args[1:], " ")
		req, err := client.Clarify(cmd.Context(), args[0], question)
		if err != nil {
			return err
		}
		return printJSON(req)
	},
}

var linkCmd = &cobra.Command{
	Use:   "link [from-id] [to-id] [edge-type]",
	Short: "Create a typed edge between two nodes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Link(cmd.Context(), args[0], args[1], types.EdgeType(args[2])); err != nil {
			return err
		}
		fmt.Printf("linked %s -[%s]-> %s\n", args[0], args[2], args[1])
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink [from-id] [to-id] [edge-type]",
	Short: "Remove a specific edge",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Unlink(cmd.Context(), args[0], args[1], types.EdgeType(args[2])); err != nil {
			return err
		}
		fmt.Printf("unlinked %s -[%s]-> %s\n", args[0], args[2], args[1])
		return nil
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List unresolved contradiction pairs, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		conflicts, err := client.Conflicts(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(conflicts)
	},
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List nodes with no incident edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		orphans, err := client.Orphans(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(orphans)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [node-id]",
	Short: "Delete a node, its edges, and its vector entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.DeleteNode(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the knowledge graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		stats, err := client.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}
