// Package spotify provides a small client for the Spotify Web API.
//
// # Overview
//
// This package covers the pieces of the Web API needed to read a listener's
// top artists and top tracks: the authorization-code flow with a proof key
// (PKCE) and the /me/top endpoints. Requests take a context.Context and
// return structured errors.
//
// # Quick Start
//
//	client, err := spotify.NewClient(spotify.Config{
//	    ClientID:    "your-client-id",
//	    RedirectURI: "http://127.0.0.1:8888/callback",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authentication
//
// The PKCE flow never uses a client secret. A one-time verifier is generated
// locally, its challenge is sent with the authorization URL, and the verifier
// is presented once when exchanging the code:
//
//	authURL, state, err := client.Auth().Begin()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Please visit:", authURL)
//
//	// ... receive ?code=...&state=... on the redirect URI ...
//
//	token, err := client.Auth().Exchange(ctx, state, code)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The verifier is consumed by the first Exchange. A second exchange for the
// same attempt fails with ErrVerifierConsumed.
//
// A previously saved token can be restored with SetToken. Expired tokens are
// refreshed transparently; call Token to read the current one back for
// persistence.
//
// # Top Items
//
//	artists, err := client.User().TopArtists(ctx, spotify.TopItemsOptions{
//	    TimeRange: spotify.MediumTerm,
//	    Limit:     5,
//	})
//
// # Error Handling
//
//	if err != nil {
//	    var apiErr *spotify.Error
//	    if errors.As(err, &apiErr) && apiErr.Temporary() {
//	        // rate limited or server side failure
//	    }
//	}
package spotify
