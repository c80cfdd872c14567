package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/iammadab/chessbench/internal/adapter/benchpresenter"
	"github.com/iammadab/chessbench/internal/benchclient"
	"github.com/iammadab/chessbench/pkg/benchdto"
)

const usage = `usage: matchctl [--server URL] <command> [flags]

commands:
  engines                         list engines the server accepted
  create --white ID --black ID    start a match (--ms budget, --fen start, --watch)
  status ID                       print one match
  list                            print every match
  watch ID                        follow a match until it ends
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := pflag.NewFlagSet("matchctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	server := global.String("server", envOr("CHESSBENCH_URL", "http://127.0.0.1:8080"), "chessbench server URL")
	timeout := global.Duration("timeout", 8*time.Second, "per-request timeout")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	client := benchclient.NewClient(*server, benchclient.WithTimeout(*timeout))

	var err error
	switch cmd, sub := rest[0], rest[1:]; cmd {
	case "engines":
		err = cmdEngines(ctx, client)
	case "create":
		err = cmdCreate(ctx, client, sub)
	case "status":
		err = cmdStatus(ctx, client, sub)
	case "list":
		err = cmdList(ctx, client)
	case "watch":
		if len(sub) != 1 {
			err = fmt.Errorf("watch needs a match id")
			break
		}
		err = watch(ctx, client, sub[0])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "matchctl: %v\n", err)
		return 1
	}
	return 0
}

func cmdEngines(ctx context.Context, c *benchclient.Client) error {
	engines, err := c.Engines(ctx)
	if err != nil {
		return err
	}
	fmt.Print(benchpresenter.FormatEngines(benchdto.EnginesResponse{Engines: engines}))
	return nil
}

func cmdCreate(ctx context.Context, c *benchclient.Client, args []string) error {
	fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
	white := fs.StringP("white", "w", "", "white engine id")
	black := fs.StringP("black", "b", "", "black engine id")
	budget := fs.Int64("ms", 60000, "initial clock per side in milliseconds")
	fen := fs.String("fen", "", "start position (FEN); standard start when empty")
	follow := fs.Bool("watch", false, "follow the match after creating it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := c.CreateMatch(ctx, benchdto.CreateMatchRequest{
		WhiteEngineID: strings.TrimSpace(*white),
		BlackEngineID: strings.TrimSpace(*black),
		TimeControl:   benchdto.TimeControl{InitialMS: *budget},
		StartFEN:      strings.TrimSpace(*fen),
	})
	if err != nil {
		return err
	}
	fmt.Println(id)
	if *follow {
		return watch(ctx, c, id)
	}
	return nil
}

func cmdStatus(ctx context.Context, c *benchclient.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("status needs a match id")
	}
	st, err := c.Match(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Print(benchpresenter.FormatStatus(*st))
	return nil
}

func cmdList(ctx context.Context, c *benchclient.Client) error {
	list, err := c.Matches(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, st := range list {
		fmt.Print(benchpresenter.FormatStatus(st))
		fmt.Println()
	}
	return nil
}

func watch(ctx context.Context, c *benchclient.Client, id string) error {
	return c.Watch(ctx, id, func(f benchdto.Frame) error {
		fmt.Println(benchpresenter.FormatFrame(f))
		return nil
	})
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
