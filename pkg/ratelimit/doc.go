// Package ratelimit paces requests so an account does not trip Instagram's
// abuse detection.
//
// RandomInterval is used between unfollows in a batch (20 to 30 seconds by
// default) and between pages of a friendship listing (1 to 2 seconds):
//
//	pacer := ratelimit.NewRandomInterval(20*time.Second, 30*time.Second)
//	d := pacer.Next()
//	fmt.Printf("Waiting %.0fs...\n", d.Seconds())
//	if err := ratelimit.Sleep(ctx, d); err != nil {
//	    return err
//	}
package ratelimit
