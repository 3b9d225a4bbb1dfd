package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/audiosync/internal/shared"
)

func addrFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "addr",
		Usage: "Base URL of the running daemon's control surface",
		Value: defaultBaseURL,
	}
}

func syncNowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync-now",
		Usage:  "Trigger a manual sync cycle on the running daemon",
		Flags:  []cli.Flag{addrFlag()},
		Action: r.SyncNow,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Print the running daemon's catalog and queue status",
		Flags:  []cli.Flag{addrFlag()},
		Action: r.Status,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or update the running daemon's sync configuration",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Flags:  []cli.Flag{addrFlag()},
				Action: r.ConfigGet,
			},
			{
				Name:  "set",
				Flags: []cli.Flag{addrFlag()},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Action: r.ConfigSet,
			},
		},
	}
}

func (r *Runner) SyncNow(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/sync-now", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return r.writePlain("sync triggered\n")
}

func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	var out any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode status response: %w", err)
	}
	return r.writeJSON(out, true)
}

func (r *Runner) ConfigGet(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/config", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	var out any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode config response: %w", err)
	}
	return r.writeJSON(out, true)
}

func (r *Runner) ConfigSet(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.StringArg("file")
	raw, err := shared.VerifyAndReadFile(filePath)
	if err != nil {
		return err
	}
	if err := shared.ValidateJSON(raw); err != nil {
		return err
	}

	addr := cmd.String("addr")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/config", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return r.writePlain("configuration updated\n")
}
