package handlers

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Destroy removes every tracked, unprotected resource from the cluster.
// Protected resources keep their infrastructure; only their records drop.
func Destroy(ctx context.Context, configPath string, yes bool) error {
	rt, err := newRuntime(ctx, configPath)
	if err != nil {
		return err
	}

	if !yes {
		confirmed, err := confirmDestroy(ctx, rt.cfg.Cluster.ID)
		if err != nil {
			return err
		}
		if !confirmed {
			log.Println("Destroy aborted")
			return nil
		}
	}

	result, err := rt.engine.Destroy(ctx)
	if err != nil {
		return err
	}

	for _, id := range result.Deleted {
		log.Printf("  deleted %s", id)
	}
	for _, id := range result.ProtectedKept {
		log.Printf("  kept %s (protected)", id)
	}
	for id, delErr := range result.DeleteFailures {
		log.Printf("  delete failed %s: %v", id, delErr)
	}

	if len(result.DeleteFailures) > 0 {
		return fmt.Errorf("destroy finished with %d failed deletion(s)", len(result.DeleteFailures))
	}
	return nil
}

// confirmDestroy prompts interactively; outside a terminal it requires the
// --yes flag instead of assuming consent.
func confirmDestroy(ctx context.Context, clusterID string) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return false, fmt.Errorf("refusing to destroy without a terminal; pass --yes to confirm")
	}

	var confirmed bool
	prompt := huh.NewConfirm().
		Title(fmt.Sprintf("Remove all managed add-ons from cluster %s?", clusterID)).
		Description("The log bucket is protected and will be kept.").
		Value(&confirmed)
	if err := huh.NewForm(huh.NewGroup(prompt)).RunWithContext(ctx); err != nil {
		return false, err
	}
	return confirmed, nil
}
