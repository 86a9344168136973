package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS banks (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	background  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	bank_id    TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
	content    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_bank ON documents(bank_id);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	bank_id     TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	chunk_text  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, chunk_index);

CREATE TABLE IF NOT EXISTS units (
	id                     TEXT PRIMARY KEY,
	bank_id                TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
	chunk_id               TEXT REFERENCES chunks(id) ON DELETE SET NULL,
	fact_text              TEXT NOT NULL,
	fact_type              TEXT NOT NULL,
	embedding              BLOB NOT NULL,
	mentioned_at           TIMESTAMP NOT NULL,
	occurred_start         TIMESTAMP,
	occurred_end           TIMESTAMP,
	emotional_significance TEXT NOT NULL DEFAULT '',
	reasoning_motivation   TEXT NOT NULL DEFAULT '',
	preferences_opinions   TEXT NOT NULL DEFAULT '',
	sensory_details        TEXT NOT NULL DEFAULT '',
	observations           TEXT NOT NULL DEFAULT '',
	confidence             REAL
);
CREATE INDEX IF NOT EXISTS idx_units_bank_mentioned ON units(bank_id, mentioned_at);
CREATE INDEX IF NOT EXISTS idx_units_bank_type ON units(bank_id, fact_type);
CREATE INDEX IF NOT EXISTS idx_units_chunk ON units(chunk_id);

CREATE TABLE IF NOT EXISTS entities (
	id              TEXT PRIMARY KEY,
	bank_id         TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	UNIQUE(bank_id, normalized_name)
);
CREATE INDEX IF NOT EXISTS idx_entities_bank_normalized ON entities(bank_id, normalized_name);

CREATE TABLE IF NOT EXISTS entity_links (
	unit_id    TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
	entity_id  TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	confidence REAL NOT NULL,
	PRIMARY KEY (unit_id, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_entity_links_entity ON entity_links(entity_id);

CREATE TABLE IF NOT EXISTS unit_links (
	src_unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
	dst_unit_id TEXT NOT NULL REFERENCES units(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	weight      REAL NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (src_unit_id, dst_unit_id, kind)
);
CREATE INDEX IF NOT EXISTS idx_unit_links_dst ON unit_links(dst_unit_id);
`
