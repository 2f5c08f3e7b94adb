// Package google manages the OAuth2 credential used to call the Google
// Calendar API on the user's behalf.
//
// A Manager owns the credential lifecycle. It loads the persisted
// credential from a TokenStore, refreshes it when it has expired, seeds it
// from a pre-provisioned refresh token, or falls back to an Authorizer
// (the interactive loopback flow for the auth command). Every credential
// it hands out has been written back to the store first.
package google
