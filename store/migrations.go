package store

const schema = `
CREATE TABLE IF NOT EXISTS contests (
    id          TEXT PRIMARY KEY,
    platform    TEXT NOT NULL,
    key         TEXT NOT NULL,
    name        TEXT NOT NULL,
    url         TEXT NOT NULL DEFAULT '',
    starts_at   DATETIME NOT NULL,
    duration_s  INTEGER NOT NULL DEFAULT 0,
    fetched_at  DATETIME NOT NULL,
    UNIQUE(platform, key)
);

CREATE INDEX IF NOT EXISTS idx_contests_starts_at ON contests(starts_at);

CREATE TABLE IF NOT EXISTS subscribers (
    email      TEXT PRIMARY KEY,
    phone      TEXT NOT NULL DEFAULT '',
    channels   INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS reminders (
    contest_id TEXT NOT NULL,
    kind       TEXT NOT NULL,
    sent_at    DATETIME NOT NULL,
    snapshot   TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (contest_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_reminders_contest ON reminders(contest_id);
`
