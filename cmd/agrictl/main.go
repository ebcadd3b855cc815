// Command agrictl is a small admin console for the agriops API: filtered
// listings, the hierarchy tree, reparenting, and gated deletion from the
// terminal.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/terrasense/agriops/internal/deletion"
	"github.com/terrasense/agriops/internal/hierarchy"
	"github.com/terrasense/agriops/internal/types"
	"github.com/terrasense/agriops/internal/view"
)

type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(method, path string, body, target any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling console API: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("console API: %s", apiErr.Error)
		}
		return fmt.Errorf("console API returned %d", resp.StatusCode)
	}
	if target != nil {
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

type listResult struct {
	Entities []types.Entity `json:"entities"`
	Counts   view.Counts    `json:"counts"`
}

type treeResult struct {
	Roots       []*hierarchy.Node `json:"roots"`
	OrphanCount int               `json:"orphan_count"`
}

type checkResult struct {
	Blocked      bool               `json:"blocked"`
	Dependencies []types.Dependency `json:"dependencies"`
}

func main() {
	var baseURL string

	root := &cobra.Command{
		Use:   "agrictl",
		Short: "Admin console for the agriops entity API",
	}
	root.PersistentFlags().StringVar(&baseURL, "api", envOr("AGRIOPS_API", "http://localhost:8080"),
		"base URL of the console API")

	root.AddCommand(listCmd(&baseURL))
	root.AddCommand(treeCmd(&baseURL))
	root.AddCommand(reparentCmd(&baseURL))
	root.AddCommand(deleteCmd(&baseURL))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listCmd(baseURL *string) *cobra.Command {
	var category, status, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities with optional filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/entities?categories=" + category +
				"&statuses=" + status + "&q=" + search
			var res listResult
			if err := newClient(*baseURL).do(http.MethodGet, path, nil, &res); err != nil {
				return err
			}
			for _, e := range res.Entities {
				fmt.Printf("%-14s %-10s %-30s %s\n", e.Type, e.Status, e.Name, e.ID)
			}
			fmt.Printf("\n%d entities", len(res.Entities))
			for cat, n := range res.Counts.ByCategory {
				fmt.Printf("  %s=%d", cat, n)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&search, "search", "", "free-text search")
	return cmd
}

func treeCmd(baseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the entity hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res treeResult
			if err := newClient(*baseURL).do(http.MethodGet, "/v1/entities/tree", nil, &res); err != nil {
				return err
			}
			for _, root := range res.Roots {
				printNode(root, 0)
			}
			fmt.Printf("\n%d roots, %d orphans\n", len(res.Roots), res.OrphanCount)
			return nil
		},
	}
}

func printNode(n *hierarchy.Node, depth int) {
	fmt.Printf("%s%s (%s)\n", strings.Repeat("  ", depth), n.Entity.Name, n.Entity.Type)
	for _, c := range n.Children {
		printNode(c, depth+1)
	}
}

func reparentCmd(baseURL *string) *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "reparent <entity-id>",
		Short: "Move an entity under a new parent (empty --parent detaches)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				NoOp      bool   `json:"no_op"`
				Attribute string `json:"attribute"`
			}
			path := "/v1/entities/" + args[0] + "/parent"
			body := map[string]string{"parent_id": parentID}
			if err := newClient(*baseURL).do(http.MethodPatch, path, body, &res); err != nil {
				return err
			}
			if res.NoOp {
				fmt.Println("already the current parent, nothing to do")
				return nil
			}
			fmt.Printf("relationship updated via %s\n", res.Attribute)
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "new parent entity id")
	return cmd
}

func deleteCmd(baseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity-id>...",
		Short: "Delete entities after a dependency check and confirmation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL)
			gate := deletion.NewGate()
			in := bufio.NewReader(cmd.InOrStdin())

			token, err := gate.BeginCheck()
			if err != nil {
				return err
			}
			var check checkResult
			body := map[string][]string{"ids": args}
			if err := c.do(http.MethodPost, "/v1/entities/deletions/check", body, &check); err != nil {
				gate.FailCheck(token, err)
				return fmt.Errorf("dependency check failed, not deleting: %w", err)
			}
			gate.CompleteCheck(token, check.Dependencies)

			if gate.State() == deletion.StateBlocked {
				fmt.Println("deletion blocked — resolve these dependents first:")
				for _, d := range gate.Dependencies() {
					fmt.Printf("  %s: %d × %s\n", d.EntityName, d.DependentCount, d.DependentType)
				}
				return fmt.Errorf("%d entities still depend on the selection", len(gate.Dependencies()))
			}

			fmt.Printf("type %s to confirm deletion of %d entities: ", deletion.ConfirmationPhrase, len(args))
			line, _ := in.ReadString('\n')
			gate.SetConfirmation(strings.TrimSpace(line))
			if err := gate.BeginExecute(); err != nil {
				return fmt.Errorf("confirmation did not match, aborting")
			}

			for {
				delBody := map[string]any{"ids": args, "confirmation": gate.Confirmation()}
				var res struct {
					DeletedIDs   []string           `json:"deleted_ids"`
					Blocked      bool               `json:"blocked"`
					Dependencies []types.Dependency `json:"dependencies"`
				}
				execErr := c.do(http.MethodPost, "/v1/entities/deletions", delBody, &res)
				if execErr == nil && res.Blocked {
					// The catalog changed between check and delete.
					execErr = fmt.Errorf("deletion blocked by %d dependents", len(res.Dependencies))
				}
				gate.CompleteExecute(execErr)
				if execErr == nil {
					fmt.Printf("deleted %d entities\n", len(res.DeletedIDs))
					return nil
				}

				// Confirmation survives a failed execution; retrying
				// does not require re-typing the phrase.
				fmt.Printf("deletion failed: %v\nretry? [y/N] ", execErr)
				answer, _ := in.ReadString('\n')
				if strings.TrimSpace(strings.ToLower(answer)) != "y" {
					return execErr
				}
				if err := gate.Retry(); err != nil {
					return execErr
				}
				if err := gate.BeginExecute(); err != nil {
					return execErr
				}
			}
		},
	}
}
