package store

const Schema = `
CREATE TABLE IF NOT EXISTS tours (
	id TEXT PRIMARY KEY,
	snapshot TEXT NOT NULL,
	downloaded_at DATETIME NOT NULL,
	audio_resources TEXT NOT NULL DEFAULT '[]',
	image_resources TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS blobs (
	cache_key TEXT PRIMARY KEY,
	data BLOB,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schema_info (
	version INTEGER PRIMARY KEY
);
`
