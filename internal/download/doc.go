// Package download provides the download orchestration logic for
// fetching free albums and tracks from Bandcamp.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Read input URLs and batch files
//  2. Expand artist pages into their releases
//  3. Fetch and parse each release page
//  4. Resolve the free download page (directly or by email)
//  5. Follow the status-check chain to the asset URL
//  6. Stream the asset to disk
//  7. Save cover art (optional)
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	}, download.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
//	urls, err := download.ReadInputs(os.Args[1:])
//	summary, err := manager.Run(ctx, urls)
//	fmt.Println(summary.Count(download.OutcomeDownloaded), "downloaded")
//
// # Sequencing
//
// Items are processed one at a time, and page fetches are spaced by the
// request_interval setting. The only concurrency is inside the Streamer,
// where a reader and a writer goroutine share a bounded queue.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Byte progress of the current artifact is available through
// WithTransferObserver, or by polling GetProgress.
//
// # Failures
//
// A failing item is recorded in the Summary with OutcomeFailed and the batch
// continues, unless fail_fast is set. Errors can be classified with
// errors.Is: ErrTransfer and its kinds for the status-check chain and the
// transfer, network and disk failures included, resolve.ErrResolve for the
// email flow, bandcamp.ErrParse for unreadable pages. A cancelled context is
// reported as context.Canceled, never as ErrTransfer.
package download
