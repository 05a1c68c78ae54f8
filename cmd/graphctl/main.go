// graphctl inspects and maintains canvas workspace files.
//
// Usage:
//
//	graphctl inspect <workspace.db>   print nodes, edges, and counts
//	graphctl prune <workspace.db>     remove edges with missing endpoints
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"canvas2/domain/core/aggregates"
	"canvas2/domain/core/valueobjects"
	"canvas2/infrastructure/persistence/sqlite"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s inspect|prune <workspace.db>\n", os.Args[0])
		os.Exit(2)
	}
	command, path := os.Args[1], os.Args[2]

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := sqlite.Open(path, logger)
	if err != nil {
		logger.Fatal("failed to open workspace", zap.String("path", path), zap.Error(err))
	}
	defer store.Close()

	switch command {
	case "inspect":
		err = inspect(ctx, store)
	case "prune":
		err = prune(ctx, store, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}

// inspect prints the workspace contents after the same load-and-prune
// pass the editor performs
func inspect(ctx context.Context, store *sqlite.Store) error {
	nodes, edges, err := store.LoadGraph(ctx)
	if err != nil {
		return err
	}

	graph, pruned, err := aggregates.NewGraphFromStates(nodes, edges)
	if err != nil {
		return err
	}

	snap := graph.Snapshot()
	fmt.Printf("nodes: %d  edges: %d  orphaned edges: %d\n\n", len(snap.Nodes), len(snap.Edges), len(pruned))

	for _, n := range snap.Nodes {
		fmt.Printf("node %s kind=%s pos=(%.1f, %.1f) size=%.0fx%.0f color=%q created=%s\n",
			n.ID, n.Kind, n.Position.X(), n.Position.Y(),
			n.Size.Width(), n.Size.Height(), n.Color,
			n.CreatedAt.Format("2006-01-02 15:04:05.000"),
		)
	}
	for _, e := range snap.Edges {
		fmt.Printf("edge %s %s -> %s color=%q\n", e.ID, e.SourceID, e.TargetID, e.Color)
	}
	for _, e := range pruned {
		fmt.Printf("orphaned edge %s %s -> %s\n", e.ID, e.SourceID, e.TargetID)
	}
	return nil
}

// prune deletes edge records whose endpoints no longer exist
func prune(ctx context.Context, store *sqlite.Store, logger *zap.Logger) error {
	nodes, edges, err := store.LoadGraph(ctx)
	if err != nil {
		return err
	}

	_, pruned, err := aggregates.NewGraphFromStates(nodes, edges)
	if err != nil {
		return err
	}
	if len(pruned) == 0 {
		fmt.Println("no orphaned edges")
		return nil
	}

	ids := make([]valueobjects.EdgeID, len(pruned))
	for i, state := range pruned {
		ids[i] = state.ID
	}
	if err := store.DeleteEdges(ctx, ids); err != nil {
		return err
	}

	logger.Info("removed orphaned edges", zap.Int("count", len(ids)))
	fmt.Printf("removed %d orphaned edges\n", len(ids))
	return nil
}
