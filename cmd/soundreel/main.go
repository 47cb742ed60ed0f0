package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"soundreel/internal/actions"
	"soundreel/internal/apiclient"
	"soundreel/internal/config"
	"soundreel/internal/fetcher"
	"soundreel/internal/logging"
	"soundreel/internal/metrics"
	"soundreel/internal/model"
	"soundreel/internal/store"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "run":
		cmdRun()
	case "timeline":
		cmdTimeline()
	case "notifications":
		cmdNotifications()
	case "favorite":
		cmdFavorite()
	default:
		printHelp()
	}
}

func printHelp() {
	fmt.Println("Usage: soundreel <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init           Create a config file at ./soundreel.yaml")
	fmt.Println("  run            Poll timelines and notifications until interrupted")
	fmt.Println("  timeline       Fetch one timeline once and print it")
	fmt.Println("  notifications  Fetch notifications once and print them")
	fmt.Println("  favorite       Favorite (or unfavorite) a track by id")
}

func mustLoadClient(cfg config.Config) *apiclient.HTTPClient {
	if cfg.Credentials.AccessToken == "" {
		fmt.Println("warning: missing SOUNDREEL_ACCESS_TOKEN; authenticated calls will fail")
	}
	return apiclient.NewHTTPClient(cfg.Instance.URL, cfg.Credentials.AccessToken)
}

func cmdInit() {
	out := flag.NewFlagSet("init", flag.ExitOnError)
	path := out.String("path", "./soundreel.yaml", "path to write config")
	_ = out.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	fmt.Println("Config written to:", abs)
}

// stdoutNotifier is the CLI stand-in for desktop notifications.
type stdoutNotifier struct{}

func (stdoutNotifier) Notify(n *model.Notification) {
	from := ""
	if n.FromProfile != nil {
		from = n.FromProfile.ScreenName
	}
	fmt.Printf("[notification] %s from @%s\n", n.Type, from)
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./soundreel.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil { fmt.Println("error:", err); os.Exit(1) }
	client := mustLoadClient(cfg)

	metrics.StartServer(cfg.Metrics.Addr)

	st := store.New()
	if cfg.Notifications.Desktop {
		st.SetNotifier(stdoutNotifier{})
	}
	account := cfg.Account.ID
	if account == "" {
		account = cfg.Account.Username
	}
	if account != "" {
		me, err := client.FetchUser(context.Background(), account)
		if err != nil {
			logging.Warn("current_user_fetch_failed", map[string]any{"error": err.Error()})
		} else {
			st.SetCurrentUser(me)
		}
	}

	driver := fetcher.New(client, st, cfg)
	driver.StartFetchingTimeline(store.TimelinePublic, "", "")
	driver.StartFetchingTimeline(store.TimelineFriends, "", "")
	driver.StartFetchingNotifications()
	logging.Info("polling_started", map[string]any{
		"instance": cfg.Instance.URL,
		"interval": cfg.Timelines.PollInterval.String(),
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	driver.StopAll()
	logging.Info("polling_stopped", nil)
}

func cmdTimeline() {
	fs := flag.NewFlagSet("timeline", flag.ExitOnError)
	cfgPath := fs.String("config", "./soundreel.yaml", "config path")
	name := fs.String("name", store.TimelinePublic, "timeline name")
	userID := fs.String("user", "", "user id for user-scoped timelines")
	tag := fs.String("tag", "", "tag for the tag timeline")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil { fmt.Println("error:", err); os.Exit(1) }
	client := mustLoadClient(cfg)

	st := store.New()
	st.SetTimelineUserID(*name, *userID)
	driver := fetcher.New(client, st, cfg)
	if err := driver.FetchTimelineOnce(fetcher.FetchOpts{
		Timeline: *name, UserID: *userID, Tag: *tag, ShowImmediately: true,
	}); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	for _, s := range st.VisibleStatuses(*name) {
		author := ""
		if s.User != nil {
			author = s.User.ScreenName
		}
		title := s.Title
		if title == "" {
			title = s.Content
		}
		fmt.Printf("%s @%s [%s] favs=%d repeats=%d\n  %s\n", s.ID, author, s.Kind, s.FaveNum, s.RepeatNum, title)
	}
}

func cmdFavorite() {
	fs := flag.NewFlagSet("favorite", flag.ExitOnError)
	cfgPath := fs.String("config", "./soundreel.yaml", "config path")
	id := fs.String("id", "", "status id")
	undo := fs.Bool("undo", false, "remove the favorite instead")
	_ = fs.Parse(os.Args[2:])
	if *id == "" {
		fmt.Println("error: -id is required")
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil { fmt.Println("error:", err); os.Exit(1) }
	client := mustLoadClient(cfg)

	st := store.New()
	coord := actions.New(client, st, cfg)
	ctx := context.Background()
	if *undo {
		err = coord.Unfavorite(ctx, *id)
	} else {
		err = coord.Favorite(ctx, *id)
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func cmdNotifications() {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	cfgPath := fs.String("config", "./soundreel.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil { fmt.Println("error:", err); os.Exit(1) }
	client := mustLoadClient(cfg)

	st := store.New()
	driver := fetcher.New(client, st, cfg)
	if err := driver.FetchNotificationsOnce(false); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	for _, n := range st.Notifications() {
		from := ""
		if n.FromProfile != nil {
			from = n.FromProfile.ScreenName
		}
		seen := " "
		if !n.Seen {
			seen = "*"
		}
		fmt.Printf("%s%d %s from @%s\n", seen, n.ID, n.Type, from)
	}
}
