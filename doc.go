// Package exfetch downloads rendered exercise solutions from the
// DoExercises platform and converts them to PDF.
//
// # Pipeline
//
// A run goes through these stages:
//
//  1. Login: Client.Login posts the credentials and returns a SessionHandle.
//  2. Listing: Client.FetchFilenames reads the source filenames (.Rmd).
//  3. Filter: FilterExisting drops names whose output already exists.
//  4. Fetch: Fetcher renders each name on the platform and downloads the
//     HTML, on a WorkerPool.
//  5. Convert: a PDFEngine turns the HTML into PDF files.
//
// # Platform responses
//
// The platform is an OpenCPU server answering with printed R values, not
// JSON. TextParser extracts the session handle, the filename list and the
// rendered artifact path from that text; a different format can be plugged
// in with WithParser.
//
//	c := exfetch.NewClient(exfetch.WithTimeout(30 * time.Second))
//	handle, err := c.Login(ctx, exfetch.Credentials{User: "nome.cognome", ID: "123456"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	names, err := c.FetchFilenames(ctx, handle)
//
// # Conversion
//
// PDFConverter runs wkhtmltopdf. Where xvfb-run is available it wraps each
// run in its own virtual display and converts on the pool; otherwise runs
// happen one at a time. ChromeConverter renders through headless Chrome
// (go-rod) and always uses the pool.
//
// A failed conversion is reported in the item's Result and never stops the
// other items. Login, listing, render and download failures are fatal.
//
// # Interrupts
//
// Cancelling the context stops admission of new items. Items already
// running complete, and the stage error wraps ErrInterrupted. Files are
// written through a temporary name, so an output file is either complete
// or absent.
package exfetch
