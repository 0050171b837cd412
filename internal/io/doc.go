// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Exclusive file creation, so an existing artifact is never overwritten
//   - Renaming folders without clobbering an existing destination
//   - Directory creation
//   - Cover art sniffing, resizing and JPEG conversion
//
// # File Operations
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/music/Label")
//
//	// Create a file that must not exist yet
//	f, err := ioutils.CreateExclusive("/music/Label/2022-01-30 - Artist - Name.zip")
//	if errors.Is(err, fs.ErrExist) {
//	    // already downloaded
//	}
//
//	// Rename unless the destination is taken
//	renamed, err := ioutils.RenameNoReplace(oldDir, newDir)
//
// # Image Processing
//
// The ImageService handles cover art manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Sniff, shrink to fit 1000x1000 and re-encode as JPEG
//	cover, err := svc.PrepareCover(ctx, imageData, 1000)
package ioutils
