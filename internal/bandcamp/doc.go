// Package bandcamp provides functionality to parse Bandcamp HTML pages
// and extract release information.
//
// The package handles three use cases:
//
//  1. Parsing album/track pages into model.ReleaseInfo
//  2. Reading the page data of free download pages
//  3. Parsing artist music pages to discover all releases
//
// # Release Page Parsing
//
// Use the Extractor to read release metadata from an album or track page:
//
//	extractor := bandcamp.NewExtractor()
//	info, err := extractor.ParseRelease(htmlContent)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Release: %s by %s\n", info.Name, info.Artist)
//
// # Discography Extraction
//
// Use Discography to find all release URLs from an artist's music page:
//
//	disco := bandcamp.NewDiscography()
//	urls, err := disco.GetItemURLs(musicPageHTML)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, url := range urls {
//	    fmt.Println(url) // e.g., "/album/my-album"
//	}
//
// # Bandcamp Data Format
//
// Release pages embed a schema.org JSON-LD block and a `data-tralbum`
// attribute; download pages embed a `data-blob` attribute on the #pagedata
// element. Attribute payloads are HTML-escaped JSON, unescaped by the HTML
// parser before being queried with gjson.
package bandcamp
