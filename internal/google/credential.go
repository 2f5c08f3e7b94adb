package google

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the persisted form of an OAuth2 token.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// FromToken converts an oauth2 token. Scopes are taken from the token
// response's "scope" field when the server sent one, otherwise from
// requested.
func FromToken(t *oauth2.Token, requested []string) *Credential {
	if t == nil {
		return nil
	}
	c := &Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
		Scopes:       requested,
	}
	if granted, ok := t.Extra("scope").(string); ok && granted != "" {
		c.Scopes = strings.Fields(granted)
	}
	return c
}

// Token returns the credential as an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// Valid reports whether the access token is present and not about to
// expire. It applies the same early-expiry margin as oauth2.Token.
func (c *Credential) Valid() bool {
	return c != nil && c.Token().Valid()
}

// Refreshable reports whether the credential carries a refresh token.
func (c *Credential) Refreshable() bool {
	return c != nil && c.RefreshToken != ""
}
