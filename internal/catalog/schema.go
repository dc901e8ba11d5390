package catalog

// sqliteSchema creates the bulk store (commits, changes) and the indexed
// catalog store (file_identities, rename_lineage, edges, component_edges,
// clustering snapshots, analysis_runs) described in §4.5, with the
// indexes §4.5 lists as a minimum requirement.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS commits (
	id             TEXT PRIMARY KEY,
	timestamp      DATETIME NOT NULL,
	author_name    TEXT,
	author_email   TEXT,
	parent_count   INTEGER NOT NULL,
	changeset_size INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS changes (
	commit_id     TEXT NOT NULL,
	path          TEXT NOT NULL,
	kind          INTEGER NOT NULL,
	old_path      TEXT,
	similarity    INTEGER,
	identity_id   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_commit ON changes(commit_id);
CREATE INDEX IF NOT EXISTS idx_changes_identity ON changes(identity_id);

CREATE TABLE IF NOT EXISTS file_identities (
	id                    INTEGER PRIMARY KEY,
	path_current          TEXT NOT NULL,
	path_latest_observed  TEXT NOT NULL,
	exists_at_head        INTEGER NOT NULL,
	revisions             INTEGER NOT NULL,
	unfiltered_revisions  INTEGER NOT NULL,
	first_seen            DATETIME,
	last_seen             DATETIME
);
CREATE INDEX IF NOT EXISTS idx_file_identities_path ON file_identities(path_current);
CREATE INDEX IF NOT EXISTS idx_file_identities_head_revisions ON file_identities(exists_at_head, revisions);

CREATE TABLE IF NOT EXISTS rename_lineage (
	commit_id  TEXT NOT NULL,
	old_path   TEXT NOT NULL,
	new_path   TEXT NOT NULL,
	similarity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rename_lineage_commit ON rename_lineage(commit_id);

CREATE TABLE IF NOT EXISTS edges (
	src               INTEGER NOT NULL,
	dst               INTEGER NOT NULL,
	pair_count        INTEGER NOT NULL,
	pair_weight       REAL NOT NULL,
	src_count         INTEGER NOT NULL,
	dst_count         INTEGER NOT NULL,
	jaccard           REAL NOT NULL,
	jaccard_weighted  REAL NOT NULL,
	p_dst_given_src   REAL NOT NULL,
	p_src_given_dst   REAL NOT NULL,
	PRIMARY KEY (src, dst)
);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);

CREATE TABLE IF NOT EXISTS component_edges (
	depth         INTEGER NOT NULL,
	src_component TEXT NOT NULL,
	dst_component TEXT NOT NULL,
	co_change_sum INTEGER NOT NULL,
	jaccard       REAL NOT NULL,
	PRIMARY KEY (depth, src_component, dst_component)
);

CREATE TABLE IF NOT EXISTS clustering_snapshots (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	algorithm   TEXT NOT NULL,
	parameters  TEXT,
	created_at  DATETIME NOT NULL,
	modularity  REAL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS cluster_members (
	snapshot_id TEXT NOT NULL,
	cluster_id  INTEGER NOT NULL,
	identity_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cluster_members_snapshot ON cluster_members(snapshot_id);

CREATE TABLE IF NOT EXISTS cluster_enrichments (
	snapshot_id    TEXT NOT NULL,
	cluster_id     INTEGER NOT NULL,
	avg_coupling   REAL NOT NULL,
	total_churn    INTEGER NOT NULL,
	hot_files      TEXT,
	top_commits    TEXT,
	common_authors TEXT,
	bus_factor     INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, cluster_id)
);

CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	repo_id     TEXT NOT NULL,
	stage       TEXT NOT NULL,
	percentage  INTEGER NOT NULL,
	counts      TEXT,
	thresholds  TEXT,
	error_kind  TEXT,
	error_message TEXT,
	started_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_repo ON analysis_runs(repo_id);
`

// postgresSchema mirrors sqliteSchema with Postgres-native types. Kept as
// a separate literal rather than string-substituted from sqliteSchema so
// each backend's DDL is reviewable on its own, matching the teacher's
// practice of never sharing a single schema string across sqlite.go and
// postgres.go.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS commits (
	id             TEXT PRIMARY KEY,
	timestamp      TIMESTAMPTZ NOT NULL,
	author_name    TEXT,
	author_email   TEXT,
	parent_count   INTEGER NOT NULL,
	changeset_size INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS changes (
	commit_id     TEXT NOT NULL,
	path          TEXT NOT NULL,
	kind          INTEGER NOT NULL,
	old_path      TEXT,
	similarity    INTEGER,
	identity_id   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_commit ON changes(commit_id);
CREATE INDEX IF NOT EXISTS idx_changes_identity ON changes(identity_id);

CREATE TABLE IF NOT EXISTS file_identities (
	id                    BIGINT PRIMARY KEY,
	path_current          TEXT NOT NULL,
	path_latest_observed  TEXT NOT NULL,
	exists_at_head        BOOLEAN NOT NULL,
	revisions             BIGINT NOT NULL,
	unfiltered_revisions  BIGINT NOT NULL,
	first_seen            TIMESTAMPTZ,
	last_seen             TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_file_identities_path ON file_identities(path_current);
CREATE INDEX IF NOT EXISTS idx_file_identities_head_revisions ON file_identities(exists_at_head, revisions);

CREATE TABLE IF NOT EXISTS rename_lineage (
	commit_id  TEXT NOT NULL,
	old_path   TEXT NOT NULL,
	new_path   TEXT NOT NULL,
	similarity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rename_lineage_commit ON rename_lineage(commit_id);

CREATE TABLE IF NOT EXISTS edges (
	src               BIGINT NOT NULL,
	dst               BIGINT NOT NULL,
	pair_count        BIGINT NOT NULL,
	pair_weight       DOUBLE PRECISION NOT NULL,
	src_count         BIGINT NOT NULL,
	dst_count         BIGINT NOT NULL,
	jaccard           DOUBLE PRECISION NOT NULL,
	jaccard_weighted  DOUBLE PRECISION NOT NULL,
	p_dst_given_src   DOUBLE PRECISION NOT NULL,
	p_src_given_dst   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (src, dst)
);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);

CREATE TABLE IF NOT EXISTS component_edges (
	depth         INTEGER NOT NULL,
	src_component TEXT NOT NULL,
	dst_component TEXT NOT NULL,
	co_change_sum BIGINT NOT NULL,
	jaccard       DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (depth, src_component, dst_component)
);

CREATE TABLE IF NOT EXISTS clustering_snapshots (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	algorithm   TEXT NOT NULL,
	parameters  JSONB,
	created_at  TIMESTAMPTZ NOT NULL,
	modularity  DOUBLE PRECISION,
	description TEXT
);

CREATE TABLE IF NOT EXISTS cluster_members (
	snapshot_id TEXT NOT NULL,
	cluster_id  INTEGER NOT NULL,
	identity_id BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cluster_members_snapshot ON cluster_members(snapshot_id);

CREATE TABLE IF NOT EXISTS cluster_enrichments (
	snapshot_id    TEXT NOT NULL,
	cluster_id     INTEGER NOT NULL,
	avg_coupling   DOUBLE PRECISION NOT NULL,
	total_churn    BIGINT NOT NULL,
	hot_files      JSONB,
	top_commits    JSONB,
	common_authors JSONB,
	bus_factor     INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, cluster_id)
);

CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	repo_id     TEXT NOT NULL,
	stage       TEXT NOT NULL,
	percentage  INTEGER NOT NULL,
	counts      JSONB,
	thresholds  JSONB,
	error_kind  TEXT,
	error_message TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_repo ON analysis_runs(repo_id);
`
