/*
Package cli provides command-line interface utilities for Charon.

The cli package holds the error types and signal helpers shared by the
charon command tree.

Error Types:

Commands wrap failures in typed errors; the root command maps them to
exit codes through ExitCode (configuration failures exit 2, everything
else 1):

	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if err := store.Query(ctx, query); err != nil {
		return cli.NewCommandError("audit", err)
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM where the signal value is
reported:

	sigChan := cli.ShutdownChannel()
	sig := <-sigChan
	// Begin shutdown, log sig

For cancelling one-shot operations on interrupt:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	records, err := store.Query(ctx, query)
*/
package cli
