package cmd

import (
	"context"
	"errors"

	"github.com/spatialmeet/cli/internal/api"
	"github.com/spatialmeet/cli/internal/auth"
	"github.com/spatialmeet/cli/internal/config"
)

// roomFinder is the slice of the API client needed to turn a room code
// into an id.
type roomFinder interface {
	ListRooms(ctx context.Context) ([]api.Room, error)
}

var (
	flagDomain   string
	flagInsecure bool
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
)

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		Domain:   flagDomain,
		Insecure: flagInsecure,
		STUN:     flagSTUN,
		TURN:     flagTURN,
		TURNUser: flagTURNUser,
		TURNPass: flagTURNPass,
	})
}

// requireCredentials loads the stored identity or explains how to get one.
func requireCredentials() (*auth.Credentials, error) {
	creds, err := auth.Load()
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			return nil, errors.New("not signed in, run 'spatialmeet login' first")
		}
		return nil, err
	}
	return creds, nil
}

func newAPIClient(cfg *config.Config, creds *auth.Credentials) *api.Client {
	token := ""
	if creds != nil {
		token = creds.Token
	}
	return api.NewClient(cfg.APIBaseURL, token)
}
