// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/internal/gemini"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

var createStoreCmd = &cobra.Command{
	Use:   "create-store NAME",
	Short: "Create a File Search store",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateStore,
}

var listStoresCmd = &cobra.Command{
	Use:   "list-stores",
	Short: "List File Search stores",
	Args:  cobra.NoArgs,
	RunE:  runListStores,
}

var getStoreCmd = &cobra.Command{
	Use:   "get-store STORE",
	Short: "Show one store with its document counts and size",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetStore,
}

var updateStoreCmd = &cobra.Command{
	Use:   "update-store STORE",
	Short: "Rename a store",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateStore,
}

var deleteStoreCmd = &cobra.Command{
	Use:   "delete-store STORE",
	Short: "Delete a store and its local upload cache",
	Long: `Delete-store removes a store from the service. With --force the store is
deleted together with its documents; without it the service refuses to delete a
store that still has documents. The local upload cache of the store is cleared.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeleteStore,
}

func init() {
	updateStoreCmd.Flags().String("display-name", "", "new display name")
	_ = updateStoreCmd.MarkFlagRequired("display-name")
	deleteStoreCmd.Flags().Bool("force", false, "delete the store's documents as well")

	rootCmd.AddCommand(createStoreCmd, listStoresCmd, getStoreCmd, updateStoreCmd, deleteStoreCmd)
}

// storeView adds a human-readable size to a store for output.
type storeView struct {
	types.Store `yaml:",inline"`
	Size        string `json:"size,omitempty" yaml:"size,omitempty"`
}

func viewOf(s types.Store) storeView {
	v := storeView{Store: s}
	if s.SizeBytes > 0 {
		v.Size = humanize.IBytes(uint64(s.SizeBytes))
	}
	return v
}

// storeCommand resolves the client and the store reference shared by the
// per-store commands.
func storeCommand(ref string) (*gemini.Client, string, func(), error) {
	cfg, err := toolConfig()
	if err != nil {
		return nil, "", nil, err
	}
	client, err := newClient(cfg.Client)
	if err != nil {
		return nil, "", nil, err
	}
	ctx, cancel := commandContext(0)
	defer cancel()
	name, err := client.ResolveStoreName(ctx, ref)
	if err != nil {
		client.Close()
		return nil, "", nil, err
	}
	logger.Info("resolved store", zap.String("ref", ref), zap.String("store", name))
	return client, name, client.Close, nil
}

// localStoreName resolves ref for commands that only touch the local cache.
// A full resource name needs no lookup, so no client is built for it.
func localStoreName(ref string) (string, error) {
	if name, ok := gemini.QualifiedStoreName(ref); ok {
		return name, nil
	}
	_, name, done, err := storeCommand(ref)
	if err != nil {
		return "", err
	}
	done()
	return name, nil
}

func runCreateStore(cmd *cobra.Command, args []string) error {
	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg.Client)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext(0)
	defer cancel()
	store, err := client.CreateStore(ctx, args[0])
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, viewOf(store))
}

func runListStores(cmd *cobra.Command, args []string) error {
	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg.Client)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext(0)
	defer cancel()
	stores, err := client.ListStores(ctx)
	if err != nil {
		return err
	}
	views := make([]storeView, 0, len(stores))
	for _, s := range stores {
		views = append(views, viewOf(s))
	}
	return writeJSON(os.Stdout, views)
}

func runGetStore(cmd *cobra.Command, args []string) error {
	client, name, done, err := storeCommand(args[0])
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := commandContext(0)
	defer cancel()
	store, err := client.GetStore(ctx, name)
	if errors.Is(err, gemini.ErrNotFound) {
		return fmt.Errorf("store %s not found", name)
	}
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, viewOf(store))
}

func runUpdateStore(cmd *cobra.Command, args []string) error {
	displayName, _ := cmd.Flags().GetString("display-name")
	client, name, done, err := storeCommand(args[0])
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := commandContext(0)
	defer cancel()
	store, err := client.UpdateStore(ctx, name, displayName)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, viewOf(store))
}

func runDeleteStore(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	client, name, done, err := storeCommand(args[0])
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := commandContext(0)
	defer cancel()
	if err := client.DeleteStore(ctx, name, force); err != nil {
		return err
	}

	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	if err := openCache(cfg).Clear(name); err != nil {
		logger.Warn("clearing cache of deleted store", zap.String("store", name), zap.Error(err))
	}
	return writeJSON(os.Stdout, map[string]string{"status": "deleted", "store": name})
}
