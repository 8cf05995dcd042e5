// Package authsdk holds the wire types of the LearnHub auth service and a
// small Go client for it.
//
// Unauthenticated calls go through Client:
//
//	c := authsdk.NewClient("http://localhost:8080")
//	sess, err := c.Login(ctx, "ada@example.com", "secret")
//
// A Session keeps the token pair and rotates it shortly before the access
// token expires:
//
//	me, err := sess.Me(ctx)
//	err = sess.Logout(ctx)
//
// Failed calls return *APIError carrying the HTTP status and the service's
// error code, so callers can tell "token_expired" from "invalid_token".
package authsdk
