// Command vkscope analyses a VK profile link and prints derived signals
// as JSON.
//
// Usage:
//
//	vkscope https://vk.com/durov                 # full profile
//	vkscope -timeline https://vk.com/durov       # activity timeline
//	vkscope -toxicity https://vk.com/durov       # links to toxic posts
//	vkscope -graph https://vk.com/durov          # mutual-friend graph
//	vkscope -mutual vk.com/id1 vk.com/id2        # mutual friends of two accounts
//	vkscope -recommend 10 https://vk.com/durov   # acquaintance suggestions
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitriikuleshov/vkscope"
	"github.com/dmitriikuleshov/vkscope/activity"
	"github.com/dmitriikuleshov/vkscope/history"
	"github.com/dmitriikuleshov/vkscope/httpcache"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	noBrowser := flag.Bool("no-browser", false, "disable reading vk.com cookies from browser stores")
	noCache := flag.Bool("no-cache", false, "disable HTTP caching of the denylist")
	cacheTTL := flag.Duration("cache-ttl", 24*time.Hour, "cache time-to-live")
	timeline := flag.Bool("timeline", false, "print the activity timeline")
	window := flag.Duration("window", activity.DefaultWindow, "recency window for considered posts")
	scopeLimit := flag.Int("scope-limit", activity.DefaultLimits.Friends, "walls scanned per scope (friends, subscribed users, groups)")
	toxic := flag.Bool("toxicity", false, "print links to posts with denylisted vocabulary")
	graphMode := flag.Bool("graph", false, "print the mutual-friend graph")
	mutual := flag.Bool("mutual", false, "print mutual friends of all given links")
	summary := flag.Bool("summary", false, "print a language-model summary of the profile")
	recommend := flag.Int("recommend", 0, "print up to N acquaintance recommendations")
	dataset := flag.String("dataset", "data.json", "path to the harvested candidate dataset")
	auditPath := flag.String("audit", "", "optional SQLite audit log of analysed links")
	creator := flag.String("creator", "cli", "requester name recorded in the audit log")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vkscope [options] <link> [link...]")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// .env is a convenience for development; absence is fine.
	_ = godotenv.Load() //nolint:errcheck // optional

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx := context.Background()

	var cache httpcache.Cacher
	if !*noCache {
		c, err := httpcache.New(*cacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			defer func() {
				if err := c.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			cache = c
		}
	}

	opts := []vkscope.Option{vkscope.WithLogger(logger)}
	if *recommend > 0 {
		opts = append(opts, vkscope.WithDataset(*dataset))
	}
	if !*noBrowser {
		opts = append(opts, vkscope.WithBrowserCookies())
	}
	if cache != nil {
		opts = append(opts, vkscope.WithHTTPCache(cache))
	}

	engine, err := vkscope.New(ctx, opts...)
	if err != nil {
		logger.Error("failed to initialize engine", "error", err)
		os.Exit(1)
	}

	link := flag.Arg(0)
	if *auditPath != "" {
		audit, err := history.Open(*auditPath)
		if err != nil {
			logger.Warn("audit log unavailable", "error", err)
		} else {
			defer audit.Close() //nolint:errcheck // best effort
			for _, l := range flag.Args() {
				if err := audit.Record(l, *creator); err != nil {
					logger.Warn("failed to record audit entry", "link", l, "error", err)
				}
			}
		}
	}

	limits := activity.Limits{Friends: *scopeLimit, Users: *scopeLimit, Groups: *scopeLimit}
	out, err := run(ctx, engine, link, flag.Args(), limits, *window,
		*timeline, *toxic, *graphMode, *mutual, *summary, *recommend)
	if err != nil {
		logger.Error("analysis failed", "link", link, "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		logger.Error("failed to encode output", "error", err)
		os.Exit(1)
	}
}

//nolint:revive // flag fan-in keeps main readable
func run(ctx context.Context, engine *vkscope.Engine, link string, links []string,
	limits activity.Limits, window time.Duration,
	timeline, toxic, graphMode, mutual, summary bool, recommend int,
) (any, error) {
	switch {
	case mutual:
		return engine.MutualFriends(ctx, links...)
	case graphMode:
		return engine.FriendsGraph(ctx, link)
	}

	profile, err := engine.Profile(ctx, link)
	if err != nil {
		return nil, err
	}

	switch {
	case timeline:
		return engine.Activity.Timeline(ctx, profile, limits, window)
	case toxic:
		records, err := engine.Activity.Texts(ctx, profile, limits, window)
		if err != nil {
			return nil, err
		}
		return engine.Screening.Flag(ctx, records)
	case summary:
		return engine.Summary(ctx, profile)
	case recommend > 0:
		return engine.Recommend(ctx, profile, recommend, true, true)
	default:
		return profile, nil
	}
}
