// Package model defines the core data structures used throughout
// the bandcamp-free-downloader application.
//
// # ReleaseInfo
//
// ReleaseInfo is the normalized metadata of one album or track page:
//
//	info, _ := extractor.ParseRelease(html)
//	fmt.Println(info.Kind, info.ItemID, info.FreeDownload.Status)
//
// # Paths
//
// Artifact paths are derived deterministically from a ReleaseInfo:
//
//	folder := model.PublisherFolder(info, "./music", false)
//	path := model.DownloadPath(info, folder)
//	// ./music/Some Label/2022-01-30 - Artist - Title.zip
//
// SanitizeBaseName makes arbitrary text safe to use as a single path
// component on Windows, macOS and Linux.
package model
