package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mediadeck/client"
	"mediadeck/config"
	"mediadeck/internal/storage"
	"mediadeck/models"
)

const (
	clientStoreFile = "client.json"
	clientIDKey     = "mediadeck_client_id"
)

var serverURL string

// openClient builds an SDK client backed by the persistent store under the
// configured storage directory. The session id is kept in the same store so
// remembered danmaku choices survive between invocations.
func openClient(fs afero.Fs, settings config.Settings) (*client.Client, error) {
	if err := fs.MkdirAll(settings.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	store, err := storage.NewFileStore(fs, filepath.Join(settings.Storage.Dir, clientStoreFile), storage.DefaultFileQuota)
	if err != nil {
		return nil, fmt.Errorf("storage.NewFileStore() > %w", err)
	}

	base := serverURL
	if base == "" {
		base = "http://127.0.0.1:" + strconv.Itoa(settings.Server.Port)
	}

	clientID, err := store.Get(clientIDKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	c := client.New(base, client.WithBannerCache(client.NewBannerCache(store)), client.WithClientID(clientID))
	if clientID == "" {
		if err := store.Set(clientIDKey, c.ClientID()); err != nil {
			// Memory still works for this run, only the session is not reused.
			fmt.Fprintf(color.Error, "warning: session id not saved: %v\n", err)
		}
	}
	return c, nil
}

func newBannerCommand() *cobra.Command {
	var refresh bool
	command := &cobra.Command{
		Use:   "banner",
		Short: "Show the homepage banner list",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, settings, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := openClient(afero.NewOsFs(), settings)
			if err != nil {
				return err
			}
			defer c.Close()

			var items []models.BannerItem
			if refresh {
				items, err = c.RefreshBanners(cmd.Context())
			} else {
				items, err = c.Banners(cmd.Context())
			}
			if err != nil {
				color.Red("banner unavailable: %v", err)
			}
			printBanners(cmd.OutOrStdout(), items)
			return nil
		},
	}
	command.Flags().BoolVar(&refresh, "refresh", false, "Bypass the local cache")
	return command
}

func printBanners(w io.Writer, items []models.BannerItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no banners")
		return
	}
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	for i, item := range items {
		bold.Fprintf(w, "%2d. %s", i+1, item.Title)
		if item.Subtitle != "" {
			fmt.Fprintf(w, " - %s", item.Subtitle)
		}
		fmt.Fprintln(w)
		details := []string{item.MediaType}
		if item.ReleaseDate != "" {
			details = append(details, item.ReleaseDate)
		}
		if item.VoteAverage > 0 {
			details = append(details, strconv.FormatFloat(item.VoteAverage, 'f', 1, 64))
		}
		if len(item.Tags) > 0 {
			details = append(details, strings.Join(item.Tags, "/"))
		}
		faint.Fprintf(w, "    %s\n", strings.Join(details, " · "))
	}
}
