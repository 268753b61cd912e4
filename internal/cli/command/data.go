package command

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/dblite-go/internal/cli/connection"
	"github.com/yndnr/dblite-go/internal/cli/output"
)

// runFunc executes one data command and returns what to print.
type runFunc func(ctx context.Context, cl *connection.Client, args []string) (any, error)

// dataCommand builds a command taking minArgs to maxArgs positional
// arguments. A negative maxArgs means no upper bound.
func dataCommand(name, usage, argsUsage string, minArgs, maxArgs int, run runFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Action: func(c *cli.Context) error {
			n := c.NArg()
			if n < minArgs || (maxArgs >= 0 && n > maxArgs) {
				return fmt.Errorf("usage: %s %s", name, argsUsage)
			}
			cl, ctx, cancel, err := client(c)
			if err != nil {
				return err
			}
			defer cancel()

			result, err := run(ctx, cl, c.Args().Slice())
			if err != nil {
				return err
			}
			return render(c, result)
		},
	}
}

func withAliases(cmd *cli.Command, aliases ...string) *cli.Command {
	cmd.Aliases = aliases
	return cmd
}

// orNil maps a missing value to output.Nil.
func orNil(value string, ok bool, err error) (any, error) {
	if err != nil || !ok {
		return output.Nil{}, err
	}
	return value, nil
}

func asInt(ok bool, err error) (any, error) {
	return lo.Ternary[int64](ok, 1, 0), err
}

func dataCommands() []*cli.Command {
	return []*cli.Command{
		dataCommand("set", "set a string value", "KEY VALUE", 2, 2,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return "OK", cl.Set(ctx, a[0], a[1])
			}),
		dataCommand("get", "get a string value", "KEY", 1, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return orNil(cl.Get(ctx, a[0]))
			}),
		withAliases(dataCommand("delete", "delete a key", "KEY", 1, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return asInt(cl.Delete(ctx, a[0]))
			}), "del"),
		dataCommand("exists", "check whether a key exists", "KEY", 1, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return asInt(cl.Exists(ctx, a[0]))
			}),
		dataCommand("lpush", "prepend values to a list", "KEY VALUE [VALUE...]", 2, -1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return cl.LPush(ctx, a[0], a[1:]...)
			}),
		dataCommand("lpop", "remove and return the head of a list", "KEY", 1, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return orNil(cl.LPop(ctx, a[0]))
			}),
		dataCommand("hset", "set a hash field", "KEY FIELD VALUE", 3, 3,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return asInt(cl.HSet(ctx, a[0], a[1], a[2]))
			}),
		dataCommand("hget", "get a hash field", "KEY FIELD", 2, 2,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return orNil(cl.HGet(ctx, a[0], a[1]))
			}),
		dataCommand("sadd", "add members to a set", "KEY MEMBER [MEMBER...]", 2, -1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return cl.SAdd(ctx, a[0], a[1:]...)
			}),
		dataCommand("smembers", "list the members of a set", "KEY", 1, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				members, err := cl.SMembers(ctx, a[0])
				slices.Sort(members)
				return members, err
			}),
		dataCommand("expire", "set a key's time to live in seconds", "KEY SECONDS", 2, 2,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				secs, err := strconv.ParseInt(a[1], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("seconds must be an integer: %q", a[1])
				}
				return asInt(cl.Expire(ctx, a[0], time.Duration(secs)*time.Second))
			}),
		dataCommand("ttl", "remaining time to live in seconds", "KEY", 1, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return cl.TTL(ctx, a[0])
			}),
		dataCommand("type", "kind of value stored at a key", "KEY", 1, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return cl.Type(ctx, a[0])
			}),
		dataCommand("flushall", "remove every key", "", 0, 0,
			func(ctx context.Context, cl *connection.Client, _ []string) (any, error) {
				return "OK", cl.FlushAll(ctx)
			}),
		dataCommand("ping", "check the connection", "[MESSAGE]", 0, 1,
			func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
				return cl.Ping(ctx, a...)
			}),
	}
}
