package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thingset/pkg/client"
	"thingset/pkg/observability"
	"thingset/pkg/protocol"
	"thingset/pkg/protocol/codec"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Read one object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := protocol.ParseID(args[0])
		if err != nil {
			return err
		}
		return withClient(cmd, func(c *client.Client) (*client.Response, error) {
			return c.Get(id)
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <parent> [ids...]",
	Short: "Read children of a group, all of them when no ids are given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return withClient(cmd, func(c *client.Client) (*client.Response, error) {
			return c.Fetch(ids[0], ids[1:])
		})
	},
}

var updateParent string

var updateCmd = &cobra.Command{
	Use:   "update <id> <value>",
	Short: "Write one object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := protocol.ParseID(args[0])
		if err != nil {
			return err
		}
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}
		var parent protocol.ID
		if updateParent != "" {
			if parent, err = protocol.ParseID(updateParent); err != nil {
				return err
			}
		}
		return withClient(cmd, func(c *client.Client) (*client.Response, error) {
			return c.Update(id, value, parent)
		})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <id> [args...]",
	Short: "Invoke a function",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := protocol.ParseID(args[0])
		if err != nil {
			return err
		}
		fnArgs := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			v, err := parseValue(a)
			if err != nil {
				return err
			}
			fnArgs = append(fnArgs, v)
		}
		return withClient(cmd, func(c *client.Client) (*client.Response, error) {
			return c.Exec(id, fnArgs)
		})
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateParent, "parent", "", "parent object id")
}

func withClient(cmd *cobra.Command, call func(*client.Client) (*client.Response, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	rsp, err := call(c)
	if cfg.Metrics.Enable {
		if werr := observability.WriteMetrics(cmd.ErrOrStderr()); werr != nil {
			logger.Warn("metrics dump failed", zap.Error(werr))
		}
	}
	if err != nil {
		return err
	}
	if err := printResponse(cmd.OutOrStdout(), rsp); err != nil {
		return err
	}
	if !rsp.OK() {
		if rsp.Status == protocol.StatusNone {
			return fmt.Errorf("no valid response within %dms", cfg.Client.TimeoutMS)
		}
		return fmt.Errorf("node replied %s", rsp.Status)
	}
	return nil
}

func parseIDs(args []string) ([]protocol.ID, error) {
	ids := make([]protocol.ID, 0, len(args))
	for _, a := range args {
		id, err := protocol.ParseID(a)
		if err != nil {
			return nil, fmt.Errorf("id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var jsonCodec = codec.JSON()

// parseValue takes JSON arrays and objects as such; anything else is passed on
// as a token and coerced by the encoder.
func parseValue(s string) (any, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{") {
		var v any
		if err := jsonCodec.Unmarshal([]byte(t), &v); err != nil {
			return nil, fmt.Errorf("value %q: %w", s, err)
		}
		return v, nil
	}
	return s, nil
}
