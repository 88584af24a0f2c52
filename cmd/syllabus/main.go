package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pbaille/syllabus/internal/api"
	"github.com/pbaille/syllabus/internal/catalog"
	"github.com/pbaille/syllabus/internal/config"
	"github.com/pbaille/syllabus/internal/derive"
	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/launcher"
	"github.com/pbaille/syllabus/internal/logging"
	"github.com/pbaille/syllabus/internal/ordering"
	"github.com/pbaille/syllabus/internal/query"
	"github.com/pbaille/syllabus/internal/session"
	"github.com/pbaille/syllabus/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds what every command needs once flags and config are resolved
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *zap.Logger
	catalog *catalog.Store
	rules   *derive.Rules
	clock   derive.Clock
}

func main() {
	a := &app{v: config.New()}

	if err := a.rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "syllabus",
		Short:        "Browse curriculum resources by board and level",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./syllabus.yaml or ~/.syllabus/syllabus.yaml)")
	pf.String("db", "", "database path")
	pf.String("log-level", "", "log level (debug, info, warn, error, dev)")
	pf.Int("year", 0, "as-of year for derived resources (default current year)")
	_ = a.v.BindPFlag("db", pf.Lookup("db"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("year", pf.Lookup("year"))

	rootCmd.AddCommand(a.authoritiesCmd())
	rootCmd.AddCommand(a.levelsCmd())
	rootCmd.AddCommand(a.browseCmd())
	rootCmd.AddCommand(a.deriveCmd())
	rootCmd.AddCommand(a.favCmd())
	rootCmd.AddCommand(a.openCmd())
	rootCmd.AddCommand(a.historyCmd())
	rootCmd.AddCommand(a.serveCmd())
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = log

	if cfg.Seed != "" {
		a.catalog, err = catalog.Load(cfg.Seed)
		if err != nil {
			return err
		}
		log.Debug("catalog loaded", zap.String("seed", cfg.Seed))
	} else {
		a.catalog = catalog.Default()
	}

	a.clock = derive.SystemClock{}
	if cfg.Year > 0 {
		a.clock = derive.FixedClock(cfg.Year)
	}
	a.rules = derive.New(
		derive.WithClock(a.clock),
		derive.WithLinkBase(cfg.LinkBase),
		derive.WithTierResolver(a.catalog.Tier),
		derive.WithAuthorityName(a.catalog.AuthorityName),
	)
	return nil
}

func (a *app) getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(a.cfg.DB)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(a.cfg.DB)
}

// newSession opens the configured session with persisted favorites
func (a *app) newSession(ctx context.Context, s *store.Store, l launcher.Launcher, opts ...session.Option) (*session.Session, error) {
	if err := s.EnsureSession(ctx, a.cfg.SessionID); err != nil {
		return nil, err
	}

	opts = append([]session.Option{
		session.WithID(a.cfg.SessionID),
		session.WithLogger(a.log),
		session.WithClock(a.clock),
		session.WithFavoriteStore(s),
		session.WithHistory(s),
	}, opts...)

	sess := session.New(a.catalog, a.rules, l, opts...)
	if err := sess.LoadFavorites(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *app) authoritiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorities",
		Short: "List education boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, auth := range a.catalog.Authorities() {
				fmt.Printf("%-12s %s\n", auth.ID, auth.Name)
			}
			return nil
		},
	}
}

func (a *app) levelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels [authority]",
		Short: "List an authority's levels in curriculum order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := a.catalog.Authority(args[0]); !ok {
				return fmt.Errorf("authority not found: %s", args[0])
			}

			levels := a.catalog.Levels(args[0])
			ordering.SortLevels(levels)
			for _, l := range levels {
				n := len(a.catalog.Resources(args[0], l.Label))
				fmt.Printf("%-16s %-16s %d resources\n", l.Label, l.Tier, n)
			}
			return nil
		},
	}
}

func (a *app) browseCmd() *cobra.Command {
	var (
		subject string
		text    string
		kind    string
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "browse [authority] [level]",
		Short: "Show resources for an authority, optionally expanding one level",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := query.ParseKindFilter(kind)
			if err != nil {
				return err
			}
			if mode == "" {
				mode = a.cfg.Mode
			}
			m, err := session.ParseMode(mode)
			if err != nil {
				return err
			}

			s, err := a.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			sess, err := a.newSession(ctx, s, launcher.NewHTTP(), session.WithMode(m))
			if err != nil {
				return err
			}

			if _, ok := a.catalog.Authority(args[0]); !ok {
				return fmt.Errorf("authority not found: %s", args[0])
			}
			sess.SelectAuthority(args[0])
			if len(args) == 2 {
				if err := sess.ToggleLevel(args[1]); err != nil {
					return err
				}
				if subject != "" {
					if err := sess.SelectSubject(subject); err != nil {
						return err
					}
				}
			} else if subject != "" {
				return errors.New("--subject needs a level")
			}

			view, err := sess.Results(ctx, text, filter)
			if err != nil {
				return err
			}

			var n int
			if sess.Mode() == session.ModeCatalog {
				n = printGroups(view.Catalog, sess)
			} else {
				n = printGroups(view.Derived, sess)
			}
			if n == 0 {
				fmt.Println("No matching resources.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject within the expanded level")
	cmd.Flags().StringVarP(&text, "query", "q", "", "filter by title or author")
	cmd.Flags().StringVarP(&kind, "kind", "k", "all", "kind filter (all, books, papers, notes, videos, or a kind name)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "catalog or derived (default from config)")
	return cmd
}

func (a *app) deriveCmd() *cobra.Command {
	var (
		subject string
		text    string
		kind    string
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "derive [authority] [level]",
		Short: "Synthesize the resource list for a selection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := query.ParseKindFilter(kind)
			if err != nil {
				return err
			}

			sel := domain.SelectionContext{
				Authority: args[0],
				Level:     args[1],
				Subject:   subject,
				AsOfYear:  a.clock.CurrentYear(),
			}

			if explain {
				outputs, err := a.rules.Explain(sel)
				if err != nil {
					return err
				}
				for _, o := range outputs {
					fmt.Printf("%s (%d)\n", o.Rule, len(o.Resources))
					for _, r := range o.Resources {
						if query.Matches(r.Resource, text, filter) {
							fmt.Printf("  %s  %-12s %s\n", shortID(r.ID), r.Kind, r.Title)
						}
					}
				}
				return nil
			}

			items, err := a.rules.Derive(sel)
			if err != nil {
				return err
			}
			groups := query.Run([]domain.Group[domain.DerivedResource]{a.rules.Group(sel, items)}, text, filter)
			if printGroups(groups, nil) == 0 {
				fmt.Println("No matching resources.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject to derive for")
	cmd.Flags().StringVarP(&text, "query", "q", "", "filter by title or author")
	cmd.Flags().StringVarP(&kind, "kind", "k", "all", "kind filter")
	cmd.Flags().BoolVar(&explain, "explain", false, "show which rule produced each entry")
	return cmd
}

func (a *app) favCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "fav [resource-id]",
		Short: "Toggle a favorite, or list favorites when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			sess, err := a.newSession(ctx, s, launcher.NewHTTP())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				ids := sess.Favorites()
				if len(ids) == 0 {
					fmt.Println("No favorites yet. Use 'syllabus fav <id>' to add one.")
					return nil
				}
				for _, id := range ids {
					if r, err := a.resolve(id, subject); err == nil {
						fmt.Printf("%s  %s\n", shortID(id), r.Title)
					} else {
						fmt.Printf("%s  (no longer in catalog)\n", shortID(id))
					}
				}
				return nil
			}

			r, err := a.resolve(args[0], subject)
			if err != nil {
				return err
			}
			on, err := sess.ToggleFavorite(ctx, r.ID)
			if err != nil {
				return err
			}
			if on {
				fmt.Printf("* %s\n", r.Title)
			} else {
				fmt.Printf("  %s (removed)\n", r.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "also match entries derived for this subject")
	return cmd
}

func (a *app) openCmd() *cobra.Command {
	var (
		preview bool
		subject string
	)

	cmd := &cobra.Command{
		Use:   "open [resource-id]",
		Short: "Open a resource link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolve(args[0], subject)
			if err != nil {
				return err
			}

			s, err := a.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			l := &capturingLauncher{HTTP: launcher.NewHTTP()}
			ctx := cmd.Context()
			sess, err := a.newSession(ctx, s, l)
			if err != nil {
				return err
			}

			done, err := sess.Activate(ctx, r)
			if err != nil {
				var invalid *session.InvalidLinkError
				if errors.As(err, &invalid) {
					fmt.Printf("Cannot open %q: no usable link.\n", r.Title)
					return nil
				}
				return err
			}

			fmt.Printf("Opening %s\n", r.Link)
			if err := <-done; err != nil {
				fmt.Printf("failed: %v\n", err)
				return nil
			}

			if page := l.page; preview && page != nil {
				if page.Title != "" {
					fmt.Printf("\n%s\n\n", page.Title)
				}
				fmt.Println(truncate(page.Text, 500))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&preview, "preview", "p", false, "print the page's readable text")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "also match entries derived for this subject")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent link activations",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			acts, err := s.ListActivations(cmd.Context(), a.cfg.SessionID, limit)
			if err != nil {
				return err
			}
			if len(acts) == 0 {
				fmt.Println("Nothing opened yet.")
				return nil
			}

			for _, act := range acts {
				status := "ok"
				if act.Failed {
					status = "failed"
				}
				fmt.Printf("%s  %-6s %s  %s\n",
					act.ActivatedAt.Format("2006-01-02 15:04"), status, shortID(act.ResourceID), act.Link)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of activations to show")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.getStore()
			if err != nil {
				return err
			}
			// Note: don't defer s.Close() as server runs indefinitely

			server := api.New(api.Deps{
				Catalog:  a.catalog,
				Rules:    a.rules,
				Launcher: launcher.NewHTTP(),
				Store:    s,
				Clock:    a.clock,
				Log:      a.log,
			}, a.cfg.Addr)
			return server.Run()
		},
	}

	cmd.Flags().StringP("addr", "a", "", "server address")
	_ = a.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// resolve finds a resource by id or unique id prefix. Candidates are the
// catalog plus what derive prints for every level at the configured year,
// and, when subject is set, the subject-scoped derivations too.
func (a *app) resolve(prefix, subject string) (domain.Resource, error) {
	if r, _, ok := a.catalog.Resource(prefix); ok {
		return r, nil
	}

	seen := make(map[string]bool)
	var found []domain.Resource
	add := func(r domain.Resource) {
		if !seen[r.ID] && strings.HasPrefix(r.ID, prefix) {
			seen[r.ID] = true
			found = append(found, r)
		}
	}

	for _, auth := range a.catalog.Authorities() {
		for _, g := range a.catalog.Groups(auth.ID) {
			for _, r := range g.Items {
				add(r)
			}
		}

		for _, l := range a.catalog.Levels(auth.ID) {
			sel := domain.SelectionContext{Authority: auth.ID, Level: l.Label, AsOfYear: a.clock.CurrentYear()}
			scopes := []domain.SelectionContext{sel}
			if subject != "" {
				sel.Subject = subject
				scopes = append(scopes, sel)
			}
			for _, c := range scopes {
				items, err := a.rules.Derive(c)
				if err != nil {
					return domain.Resource{}, err
				}
				for _, d := range items {
					add(d.Resource)
				}
			}
		}
	}

	switch len(found) {
	case 0:
		return domain.Resource{}, fmt.Errorf("resource not found: %s", prefix)
	case 1:
		return found[0], nil
	default:
		return domain.Resource{}, fmt.Errorf("ambiguous id prefix %s matches %d resources", prefix, len(found))
	}
}

// capturingLauncher keeps the page fetched while opening, so a preview
// needs no second request
type capturingLauncher struct {
	*launcher.HTTP
	page *launcher.Page
}

func (c *capturingLauncher) Open(ctx context.Context, uri string) error {
	page, err := c.Preview(ctx, uri)
	if err != nil {
		return err
	}
	c.page = page
	return nil
}

// favoriteChecker marks favorites in listings; nil means no marks
type favoriteChecker interface {
	IsFavorite(id string) bool
}

func printGroups[T domain.Item](groups []domain.Group[T], favs favoriteChecker) int {
	var n int
	for _, g := range groups {
		fmt.Printf("%s\n", g.Level.Label)
		for _, item := range g.Items {
			r := item.Base()
			mark := " "
			if favs != nil && favs.IsFavorite(r.ID) {
				mark = "*"
			}
			line := fmt.Sprintf("  %s %s  %-12s %s", mark, shortID(r.ID), r.Kind, r.Title)
			if r.Author != "" {
				line += " (" + r.Author + ")"
			}
			fmt.Println(line)
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
