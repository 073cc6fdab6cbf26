package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
// The SQL is kept to the subset shared by SQLite and PostgreSQL.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	full_name     TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'User' CHECK(role IN ('Admin', 'User')),
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       VARCHAR(100) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    TIMESTAMP NOT NULL,
	priority    TEXT NOT NULL DEFAULT 'low' CHECK(priority IN ('low', 'medium', 'high')),
	status      TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'in_progress', 'completed')),
	attachment  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);

CREATE TABLE IF NOT EXISTS checklist_items (
	id          TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	description TEXT NOT NULL,
	completed   INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	sort_order  INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checklist_items_task_id ON checklist_items(task_id);

CREATE TABLE IF NOT EXISTS assignments (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(task_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_task_id ON assignments(task_id);
CREATE INDEX IF NOT EXISTS idx_assignments_user_id ON assignments(user_id);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS notices (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	message    TEXT NOT NULL,
	delivered  INTEGER NOT NULL DEFAULT 0 CHECK(delivered IN (0, 1)),
	is_read    INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notices_user_id ON notices(user_id);
CREATE INDEX IF NOT EXISTS idx_notices_delivered ON notices(delivered);
`,
	},
}
