package download

// Package download turns video URLs into local mp3 files. The fetcher drives
// yt-dlp (via github.com/lrstanley/go-ytdlp) for one URL; the service runs
// fetchers on a bounded worker pool, reports progress and per-item failures,
// and joins the whole batch.
