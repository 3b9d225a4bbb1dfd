package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/audiosync/internal/shared"
)

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage playlist-provider authentication on the running daemon",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Open a browser to authorize the playlist provider",
				Flags:  []cli.Flag{addrFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check whether the daemon holds a playlist-provider token",
				Flags:  []cli.Flag{addrFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// AuthLogin opens the operator's browser to the daemon's /auth/login
// redirect, which itself forwards to the playlist provider's consent
// screen; the daemon's own /callback route completes the exchange.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	url := addr + "/auth/login"
	r.logger.Info("opening browser for authorization", "url", url)
	if err := shared.OpenBrowser(url); err != nil {
		return fmt.Errorf("%w: open browser: %v", shared.ErrServiceUnavailable, err)
	}
	return r.writePlain("follow the browser window to finish authorizing\n")
}

// AuthStatus reports whether the daemon currently holds a playlist-provider
// token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/auth/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	var out struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode auth status response: %w", err)
	}
	if out.Authenticated {
		return r.writePlain("authenticated\n")
	}
	return r.writePlain("not authenticated\n")
}
