/*
Package batch drives an unfollow run over a list of usernames.

Usernames are processed strictly in order, one request at a time. Between
two usernames the runner pauses for a random interval drawn from its
pacer; there is no pause after the last one. Failures are counted and
reported but never stop the batch, while a cancelled context stops it
before the next username.

Basic usage:

	usernames, err := batch.ReadUsernames("unfollow_list.txt")
	if err != nil {
		return err
	}

	pacer := ratelimit.NewRandomInterval(20*time.Second, 30*time.Second)
	runner := batch.NewRunner(client, pacer, ui.NewConsole(os.Stdout), log)
	result := runner.Run(ctx, usernames)

RunWithCheckpoint additionally records every outcome in a
checkpoint.Manager so an interrupted run can be resumed.
*/
package batch
