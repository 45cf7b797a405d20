/*
Package cli provides helpers shared by the harvest command.

Output Formatting:

History records can be printed as an aligned table, JSON, JSON lines or
CSV:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.WriteRecords(os.Stdout, format, records)

Exit Codes:

ExitCode maps command errors to process exit codes; *ConfigError exits 2.

Signal Handling:

For commands that should stop on SIGINT/SIGTERM:

	ctx, cancel := cli.SetupSignalHandler()
	defer cancel()
*/
package cli
