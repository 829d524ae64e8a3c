package platform

// Package platform contains OS and external tooling glue: per-run working
// directories, lookup of files produced by yt-dlp, and playlist listing via
// the ytdlp library.
