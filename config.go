package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/silhouette/internal/game"
	"github.com/Seednode/silhouette/internal/prefetch"
	"github.com/Seednode/silhouette/internal/silhouette"
)

type Config struct {
	assets             string
	assetsURL          string
	bind               string
	categories         int
	database           string
	fadeIn             time.Duration
	fetchTimeout       time.Duration
	ordering           string
	port               int
	prefetch           int
	prefetchMobile     int
	prefix             string
	profile            bool
	sessionTimeout     time.Duration
	silhouetteStrategy string
	tlsCert            string
	tlsKey             string
	variants           int
	verbose            bool
	version            bool

	log      zerolog.Logger
	order    prefetch.Ordering
	strategy silhouette.Strategy
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if (c.assets == "") == (c.assetsURL == "") {
		return errors.New("exactly one of --assets and --assets-url must be provided")
	}
	if c.assetsURL != "" {
		u, err := url.Parse(c.assetsURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid assets url (must be http or https): %q", c.assetsURL)
		}
	}
	if c.categories < 1 {
		return fmt.Errorf("invalid category count (must be at least 1): %d", c.categories)
	}
	if c.variants < 1 {
		return fmt.Errorf("invalid variant count (must be at least 1): %d", c.variants)
	}
	if c.prefetch < 1 || c.prefetchMobile < 1 {
		return fmt.Errorf("invalid prefetch capacity (must be at least 1): %d/%d", c.prefetch, c.prefetchMobile)
	}
	if c.fadeIn <= 0 {
		return fmt.Errorf("invalid fade-in duration (must be greater than 0): %s", c.fadeIn)
	}
	if c.fetchTimeout <= 0 {
		return fmt.Errorf("invalid fetch timeout (must be greater than 0): %s", c.fetchTimeout)
	}

	var err error

	c.strategy, err = silhouette.ParseStrategy(c.silhouetteStrategy)
	if err != nil {
		return err
	}

	c.order, err = prefetch.ParseOrdering(c.ordering)
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// enabledCategories lists 1..categories.
func (c *Config) enabledCategories() []int {
	out := make([]int, c.categories)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SILHOUETTE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "silhouette",
		Short:         "A silhouette guessing game, served over the web.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.log = newLogger(cfg)
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.assets, "assets", "a", "", "directory holding name lists and renders (env: SILHOUETTE_ASSETS)")
	fs.StringVar(&cfg.assetsURL, "assets-url", "", "base url holding name lists and renders (env: SILHOUETTE_ASSETS_URL)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SILHOUETTE_BIND)")
	fs.IntVar(&cfg.categories, "categories", 4, "number of generations to load (env: SILHOUETTE_CATEGORIES)")
	fs.StringVar(&cfg.database, "database", "", "path to sqlite database for streaks and settings, in-memory if unset (env: SILHOUETTE_DATABASE)")
	fs.DurationVar(&cfg.fadeIn, "fade-in", game.DefaultFadeIn, "duration of the image fade-in (env: SILHOUETTE_FADE_IN)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", timeout, "time allowed to fetch and render one image (env: SILHOUETTE_FETCH_TIMEOUT)")
	fs.StringVar(&cfg.ordering, "ordering", prefetch.FIFO.String(), "prefetch buffer ordering: fifo or priority (env: SILHOUETTE_ORDERING)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SILHOUETTE_PORT)")
	fs.IntVar(&cfg.prefetch, "prefetch", 10, "images to keep ready for desktop clients (env: SILHOUETTE_PREFETCH)")
	fs.IntVar(&cfg.prefetchMobile, "prefetch-mobile", 4, "images to keep ready for mobile clients (env: SILHOUETTE_PREFETCH_MOBILE)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SILHOUETTE_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SILHOUETTE_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: SILHOUETTE_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.silhouetteStrategy, "silhouette-strategy", silhouette.Pixel.String(), "silhouette rendering: pixel or composite (env: SILHOUETTE_SILHOUETTE_STRATEGY)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SILHOUETTE_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SILHOUETTE_TLS_KEY)")
	fs.IntVar(&cfg.variants, "variants", 4, "renders available per entity (env: SILHOUETTE_VARIANTS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SILHOUETTE_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SILHOUETTE_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("silhouette v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
