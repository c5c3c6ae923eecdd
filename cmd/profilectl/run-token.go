package main

import (
	"errors"
	"time"

	"github.com/urfave/cli"

	jwttoken "profilecheck/internal/jwt_token"
	"profilecheck/pkg/domain"
)

const defaultTokenLifetime = time.Hour

func runToken(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	account, err := domain.ParseAccountID(c.String("account"))
	if err != nil {
		return err
	}
	signer := account
	if s := c.String("signer"); s != "" {
		signer, err = domain.ParseAccountID(s)
		if err != nil {
			return err
		}
	}
	key := c.String("key")
	if key == "" {
		return errors.New("key is required")
	}
	expiresIn := c.Duration("expires")

	service := jwttoken.NewJWTService(key, c.String("issuer"), c.String("audience"))
	token, err := service.GenerateAccessToken(account, signer, expiresIn)
	if err != nil {
		return err
	}
	printJson(m.w, struct {
		Token     string    `json:"access_token"`
		Account   string    `json:"account_id"`
		Signer    string    `json:"signer_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}{
		Token:     token,
		Account:   account.String(),
		Signer:    signer.String(),
		ExpiresAt: time.Now().Add(expiresIn).UTC().Truncate(time.Second),
	})
	return nil
}
