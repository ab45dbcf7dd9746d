// Package fetcher builds and runs a tile fetch from a loaded configuration.
//
// New resolves everything a run needs up front: the row table, the target
// id list, the output store and a retrying HTTP client configured from the
// retry section. Run then walks the targets once:
//
//	f, err := fetcher.New(ctx, cfg, fetcher.WithObserver(console))
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	summary, err := f.Run(ctx)
//
// Ids whose image already exists in the store are skipped, so rerunning an
// interrupted fetch resumes where it stopped. Ids that failed are optionally
// written to output.failures_file in the same shape as a target list.
package fetcher
