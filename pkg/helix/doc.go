// Package helix is a small client for the Twitch Helix API.
//
// Client.Execute is the single place where requests are throttled, signed
// and retried. The typed endpoint helpers (Streams, SearchChannels, Users,
// Channels, Games, SearchCategories) build on it, and collection endpoints
// return a Pager that follows the `after` cursor lazily:
//
//	tokens := auth.NewTokenStore(id, secret, auth.TokenURL)
//	client := helix.NewClient(id, tokens)
//	pager := client.Streams(helix.StreamsQuery{Language: "de"})
//	for page, err := range pager.Pages(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    for _, s := range page.Data {
//	        fmt.Println(s.UserLogin, s.ViewerCount)
//	    }
//	}
package helix
