// Package auth authenticates API requests with HS256 bearer tokens issued by
// the account service. The token subject is the user id; the optional role
// claim grants administrator access.
package auth
