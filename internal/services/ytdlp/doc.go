// Package ytdlp wraps the yt-dlp command-line tool as the platform adapter:
// metadata retrieval via its JSON dump and media download into a caller-owned
// directory. Platform particulars (YouTube, Instagram, TikTok) stay inside
// yt-dlp; clipsight only sees the getMetadata/download contract.
package ytdlp
