package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cadastre/internal/atlas"
	"cadastre/internal/cadastre"
	cl "cadastre/internal/cli"
	"cadastre/internal/config"
	"cadastre/internal/offline"
	"cadastre/internal/sheets"
	"cadastre/internal/store"
	"cadastre/internal/tui"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "cadastre",
		Short:        "Browse the city land registry from the terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(&apiBase),
		newWhoamiCmd(&apiBase),
		newPlotsCmd(&apiBase),
		newPlotCmd(&apiBase),
		newOwnerCmd(&apiBase),
		newDistrictsCmd(&apiBase),
		newStreetsCmd(&apiBase),
		newMergedCmd(&apiBase),
		newLotteryCmd(&apiBase),
		newSyncCmd(&apiBase),
		newMapCmd(&apiBase),
		newDeriveCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	if sess.Expired(time.Now()) {
		return cl.Session{}, errors.New("session expired, run `cadastre login` again")
	}
	return sess, nil
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login [owner]",
		Short: "Log in with your owner name and PIN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner string
			var err error
			if len(args) == 1 {
				owner = strings.TrimSpace(args[0])
			} else if owner, err = promptRequired("Owner name"); err != nil {
				return err
			}
			pin, err := promptSecret("PIN")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			session, err := newClient(apiBase).Login(ctx, owner, pin)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				Token:     session.Token,
				Owner:     session.Owner,
				Staff:     session.Staff,
				ExpiresAt: session.ExpiresAt,
				APIBase:   *apiBase,
			}); err != nil {
				return err
			}
			msg := "Logged in as " + session.Owner + "."
			if session.Staff {
				msg += " Staff tools enabled."
			}
			printSuccess(msg)
			return nil
		},
	}
}

func newLogoutCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear the local token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sess, err := cl.LoadSession(); err == nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				if err := newClient(apiBase).Logout(ctx, sess.Token); err != nil {
					printWarn("Server logout failed: " + err.Error())
				}
			}
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in owner and their plots",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			me, err := newClient(apiBase).Me(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderOwner(cl.OwnerDetail{Owner: me.Owner, Plots: me.Plots})
			printInfo(fmt.Sprintf("Session valid until %s.", me.Session.ExpiresAt.Local().Format("2006-01-02 15:04")))
			return nil
		},
	}
}

func newPlotsCmd(apiBase *string) *cobra.Command {
	var filter cl.PlotFilter
	cmd := &cobra.Command{
		Use:   "plots",
		Short: "List plots, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			plots, err := newClient(apiBase).ListPlots(ctx, filter)
			if err != nil {
				return err
			}
			renderPlots(plots)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Owner, "owner", "", "only plots owned by this owner")
	cmd.Flags().StringVar(&filter.District, "district", "", "only plots in this district")
	cmd.Flags().StringVar(&filter.Street, "street", "", "only plots on this street")
	cmd.Flags().StringVar(&filter.Type, "type", "", "only plots of this type")
	return cmd
}

func newPlotCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plot NAME",
		Short: "Show one plot with its history and locals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Plot(ctx, args[0])
			if err != nil {
				return err
			}
			renderPlot(out)
			return nil
		},
	}
}

func newOwnerCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "owner NAME",
		Short: "Show an owner and their plots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Owner(ctx, args[0])
			if err != nil {
				return err
			}
			renderOwner(out)
			return nil
		},
	}
}

func newDistrictsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "districts [NAME]",
		Short:   "List districts or the plots of one district",
		Aliases: []string{"district"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if len(args) == 1 {
				plots, err := client.DistrictPlots(ctx, args[0])
				if err != nil {
					return err
				}
				renderPlots(plots)
				return nil
			}
			districts, err := client.Districts(ctx)
			if err != nil {
				return err
			}
			renderDistricts(districts)
			return nil
		},
	}
}

func newStreetsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "streets [NAME]",
		Short:   "List named streets or the plots on one street",
		Aliases: []string{"street"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if len(args) == 1 {
				plots, err := client.StreetPlots(ctx, args[0])
				if err != nil {
					return err
				}
				renderPlots(plots)
				return nil
			}
			streets, err := client.Streets(ctx)
			if err != nil {
				return err
			}
			renderStreets(streets)
			return nil
		},
	}
}

func newMergedCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "merged",
		Short: "List merged plot groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			groups, err := newClient(apiBase).Merged(ctx)
			if err != nil {
				return err
			}
			renderMerged(groups)
			return nil
		},
	}
}

func newLotteryCmd(apiBase *string) *cobra.Command {
	lottery := &cobra.Command{
		Use:   "lottery",
		Short: "Plot lottery commands",
	}

	lottery.AddCommand(&cobra.Command{
		Use:   "eligible",
		Short: "List plots that can be drawn",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).LotteryEligible(ctx)
			if err != nil {
				return err
			}
			renderEligible(out)
			return nil
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Show past winners, donor credits and recorded draws",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).LotteryHistory(ctx, limit)
			if err != nil {
				return err
			}
			renderLotteryHistory(out)
			return nil
		},
	}
	history.Flags().IntVar(&limit, "limit", 20, "recorded draws to show")
	lottery.AddCommand(history)

	lottery.AddCommand(&cobra.Command{
		Use:   "draw",
		Short: "Draw a winning plot (staff only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			if !sess.Staff {
				return errors.New("only staff can run the lottery")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			draw, err := newClient(apiBase).DrawLottery(ctx, sess.Token, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Drawn plot %s, donated by %s.", draw.PlotName, orDash(draw.Donor)))
			renderDrawLine(draw)
			return nil
		},
	})
	return lottery
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download the current snapshot for offline use",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			snap, err := newClient(apiBase).Snapshot(ctx)
			if err != nil {
				return err
			}
			if err := offline.Save(snap); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Snapshot %s cached: %d plots, loaded %s.", snap.ID, len(snap.Data.Plots), snap.LoadedAt.Local().Format("2006-01-02 15:04")))
			return nil
		},
	}
}

func newMapCmd(apiBase *string) *cobra.Command {
	var offlineOnly bool
	var sourcesPath string
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Open the interactive map",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := config.LoadSources(sourcesPath)
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(cmd.Context(), apiBase, offlineOnly)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("cadastre · %d plots · %s", len(snap.Data.Plots), snap.LoadedAt.Local().Format("2006-01-02 15:04"))
			return tui.Run(cmd.Context(), tui.New(snap.Data, sources.Viewport(), title))
		},
	}
	cmd.Flags().BoolVar(&offlineOnly, "offline", false, "use the cached snapshot without contacting the API")
	cmd.Flags().StringVar(&sourcesPath, "sources", os.Getenv("CADASTRE_SOURCES_FILE"), "YAML sources file with the world size")
	return cmd
}

// loadSnapshot prefers a fresh download and falls back to the cache.
func loadSnapshot(ctx context.Context, apiBase *string, offlineOnly bool) (atlas.Snapshot, error) {
	if !offlineOnly {
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		snap, err := newClient(apiBase).Snapshot(fetchCtx)
		if err == nil {
			if err := offline.Save(snap); err != nil {
				printWarn("Could not cache snapshot: " + err.Error())
			}
			return snap, nil
		}
		printWarn("API unavailable, using cached snapshot: " + err.Error())
	}
	snap, err := offline.Load()
	if errors.Is(err, offline.ErrNoSnapshot) {
		return atlas.Snapshot{}, errors.New("no cached snapshot, run `cadastre sync` while online")
	}
	return snap, err
}

func newDeriveCmd() *cobra.Command {
	var dir, sourcesPath string
	var cache bool
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a snapshot from exported CSV row-sets on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := config.LoadSources(sourcesPath)
			if err != nil {
				return err
			}
			raw, err := sheets.Dir{Path: dir}.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			data := cadastre.Derive(raw, sources.Columns)
			digest, err := store.Digest(raw)
			if err != nil {
				return err
			}

			accent.Println("\n== DERIVED SNAPSHOT ==")
			fmt.Printf("Plots:             %d\n", len(data.Plots))
			fmt.Printf("Locals:            %d\n", len(data.Locals))
			fmt.Printf("Owners:            %d\n", len(data.Owners))
			fmt.Printf("Transactions:      %d\n", len(data.Transactions))
			fmt.Printf("Merged groups:     %d\n", len(data.MergedGroups))
			fmt.Printf("District clusters: %d\n", len(data.DistrictClusters))
			fmt.Printf("Named streets:     %d\n", len(data.NamedStreets()))
			fmt.Printf("Lottery eligible:  %d\n", len(data.LotteryEligible(nil)))
			fmt.Printf("Digest:            %s\n", digest)

			if cache {
				snap := atlas.Snapshot{ID: uuid.New(), Digest: digest, Source: "dir", LoadedAt: time.Now().UTC(), Data: data}
				if err := offline.Save(snap); err != nil {
					return err
				}
				printSuccess("Snapshot cached for `cadastre map --offline`.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding <kind>.csv exports")
	cmd.Flags().StringVar(&sourcesPath, "sources", os.Getenv("CADASTRE_SOURCES_FILE"), "YAML sources file with column names")
	cmd.Flags().BoolVar(&cache, "cache", false, "store the result as the offline snapshot")
	return cmd
}
