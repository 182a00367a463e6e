// Package instagram is a minimal client for the undocumented Instagram web
// API, authenticated with a browser session cookie set.
//
// Unfollow posts to the web friendships endpoint and treats only HTTP 200 as
// success. A 429 is waited out (five minutes by default) and the same
// request is retried. FetchFriendships pages through the followers or
// following list of an account.
//
//	client := instagram.NewClient(cookies, instagram.OptionsFromConfig(cfg), log)
//	if err := client.Unfollow(ctx, "someone"); err != nil {
//	    var igErr *errors.Error
//	    if stderrors.As(err, &igErr) && igErr.Type == errors.ErrorTypeAuth {
//	        // cookies are stale
//	    }
//	}
package instagram
