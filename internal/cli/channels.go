package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goLoRaRouter/internal/config"
	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/router"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
	"github.com/LeJamon/goLoRaRouter/internal/storage"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List trusted state channels and the invalid channel log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return listChannels(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}

func openStore(ctx context.Context, cfg *config.Config) (*router.RouterStore, func() error, error) {
	peer, err := keys.ParsePublicKeyHex(cfg.Router.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("router public key: %w", err)
	}
	db, err := storage.Open(ctx, cfg.Cache.Backend, cfg.CachePath())
	if err != nil {
		return nil, nil, err
	}
	store, err := router.NewRouterStore(ctx, db, peer, cfg.Cache.LRUSize)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

func listChannels(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	trusted, err := store.StateChannels(ctx)
	if err != nil {
		return err
	}
	conflicts, err := store.Conflicts(ctx)
	if err != nil {
		return err
	}

	active := store.ActiveID()
	fmt.Fprintf(out, "Trusted state channels (%d)\n", len(trusted))
	writeChannels(out, trusted, active)
	fmt.Fprintf(out, "\nInvalid state channels (%d)\n", len(conflicts))
	writeChannels(out, conflicts, "")
	return nil
}

func writeChannels(out io.Writer, chans []*statechannel.StateChannel, active string) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNONCE\tSTATE\tCREDITS\tEXPIRE\tHEIGHT\tSEQ\t")
	for _, sc := range chans {
		id := sc.IDKey()
		if id == active {
			id += " *"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t\n",
			id, sc.SC.Nonce, sc.SC.State, sc.SC.Credits, sc.SC.ExpireAtBlock, sc.Height, sc.Seq)
	}
	w.Flush()
}
