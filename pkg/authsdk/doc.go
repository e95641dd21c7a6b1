/*
Package authsdk provides a client SDK for the passage authentication service
along with the wire types and error codes shared with the server.

# Client

A Client holds a cookie jar, so the HttpOnly refresh cookie set by register,
login and code exchange is replayed automatically on Refresh and Logout:

	client, err := authsdk.NewClient("https://auth.example.com")

	tokens, err := client.Login(ctx, "ana@test.com", "secret123")

	// Rotate the refresh cookie and obtain a new access token.
	tokens, err = client.Refresh(ctx)

	me, err := client.Me(ctx, tokens.AccessToken)

# Sessions

A Session wraps a Client and an access token, refreshing the token shortly
before it expires:

	session, err := client.LoginSession(ctx, "ana@test.com", "secret123")
	me, err := session.Me(ctx)

# Errors

Non-2xx responses are returned as *APIError. Use errors.As to inspect the
code:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
		// prompt for credentials again
	}
*/
package authsdk
